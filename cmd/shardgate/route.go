package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nsrs/shardgate/pkg/batchupdate"
	"github.com/nsrs/shardgate/pkg/models/kr"
	"github.com/nsrs/shardgate/router/plan"
)

var (
	randomLimit  int
	onlyExisting bool
	rangeColumn  string

	sqlSetFields []string
	sqlWhere     string
	sqlRows      int
	sqlStrategy  string
	sqlDollar    bool
)

var routeCmd = &cobra.Command{
	Use:   "route <base-table> <key>...",
	Short: "print the shard key and physical table of each key",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, closer, err := newRouter()
		if err != nil {
			return err
		}
		defer closer()

		base := args[0]
		for _, key := range args[1:] {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", key, r.ShardKey(base, key), r.Resolve(base, key))
		}
		return nil
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables [base-table]",
	Short: "list physical tables, of all base tables by default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, closer, err := newRouter()
		if err != nil {
			return err
		}
		defer closer()

		bases := r.BaseTables()
		if len(args) == 1 {
			bases = args
		}

		for _, base := range bases {
			var tables []string
			switch {
			case randomLimit > 0:
				tables = r.RandomTables(base, randomLimit)
			default:
				tables = r.ListAllTables(base)
			}

			if onlyExisting {
				tables = r.NewMaintenanceSession().ExistingTables(cmd.Context(), tables)
			}
			for _, t := range tables {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", base, t)
			}
		}
		return nil
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize <base-table> <lower> <upper>",
	Short: "print the tables a key range query must visit",
	Long:  "Bounds are inclusive; pass \"\" for an open bound.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, closer, err := newRouter()
		if err != nil {
			return err
		}
		defer closer()

		rng := kr.NewKeyRange(args[1], args[2])
		p := r.Optimize(args[0], rng)

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, describePlan(p))
		cond := kr.GetKRCondition(rangeColumn, &rng)
		for _, t := range p.Tables() {
			fmt.Fprintf(out, "SELECT * FROM %s WHERE %s\n", t, cond)
		}
		return nil
	},
}

func describePlan(p plan.Plan) string {
	switch p := p.(type) {
	case plan.ShardDispatchPlan:
		return fmt.Sprintf("dispatch to %s (shard key %s)", p.Table, p.ShardKey)
	case plan.PrunedScatterPlan:
		return fmt.Sprintf("pruned scatter over %d tables (prefix %s)", len(p.TableList), p.Prefix)
	case plan.ScatterPlan:
		return fmt.Sprintf("scatter over %d tables: %s", len(p.TableList), p.Reason)
	default:
		return fmt.Sprintf("%T", p)
	}
}

var partitionCmd = &cobra.Command{
	Use:   "partition <base-table>",
	Short: "group keys read from stdin by physical table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, closer, err := newRouter()
		if err != nil {
			return err
		}
		defer closer()

		keys, err := readKeys(cmd.InOrStdin())
		if err != nil {
			return err
		}

		base := args[0]
		groups := batchupdate.PartitionOrdered(keys,
			func(k string) string { return k },
			func(k string) string { return r.Resolve(base, k) })
		for _, g := range groups {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", g.Shard, len(g.Items), strings.Join(g.Items, ","))
		}
		return nil
	},
}

func readKeys(in io.Reader) ([]string, error) {
	var keys []string
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if k := strings.TrimSpace(sc.Text()); k != "" {
			keys = append(keys, k)
		}
	}
	return keys, sc.Err()
}

var sqlCmd = &cobra.Command{
	Use:   "sql <table>",
	Short: "print the batch UPDATE statement for a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, err := parseStrategy(sqlStrategy)
		if err != nil {
			return err
		}

		b := batchupdate.Builder{Format: batchupdate.Question}
		if sqlDollar {
			b.Format = batchupdate.Dollar
		}

		var stmt string
		switch strategy {
		case batchupdate.CaseWhen:
			stmt, err = b.CaseWhen(args[0], sqlSetFields, sqlWhere, sqlRows)
		default:
			stmt, err = b.RowByRow(args[0], sqlSetFields, sqlWhere, sqlRows)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), stmt)
		return nil
	},
}

func parseStrategy(s string) (batchupdate.Strategy, error) {
	switch s {
	case batchupdate.RowByRow.String(), "":
		return batchupdate.RowByRow, nil
	case batchupdate.CaseWhen.String():
		return batchupdate.CaseWhen, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q, expected %s or %s", s, batchupdate.RowByRow, batchupdate.CaseWhen)
	}
}

func init() {
	tablesCmd.Flags().IntVar(&randomLimit, "random", 0, "sample this many tables in random order")
	tablesCmd.Flags().BoolVar(&onlyExisting, "existing", false, "keep only tables present in the catalog")

	optimizeCmd.Flags().StringVar(&rangeColumn, "column", "number", "key column used in the printed queries")

	for _, c := range []*cobra.Command{sqlCmd, applyCmd} {
		c.Flags().StringSliceVar(&sqlSetFields, "set", nil, "columns to update")
		c.Flags().StringVar(&sqlWhere, "where", "", "key column")
		c.Flags().StringVar(&sqlStrategy, "strategy", batchupdate.RowByRow.String(), "row-by-row or case-when")
	}
	sqlCmd.Flags().IntVar(&sqlRows, "rows", 1, "number of rows in the batch")
	sqlCmd.Flags().BoolVar(&sqlDollar, "dollar", false, "use $n placeholders")
}
