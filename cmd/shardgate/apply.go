package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nsrs/shardgate/pkg/batchupdate"
	"github.com/nsrs/shardgate/pkg/dlock"
	"github.com/nsrs/shardgate/pkg/jobs"
	"github.com/nsrs/shardgate/pkg/models/tasks"
	"github.com/nsrs/shardgate/pkg/sglog"
	"github.com/nsrs/shardgate/qdb"
)

var applyCmd = &cobra.Command{
	Use:   "apply <base-table>",
	Short: "apply a per-shard batch update read as CSV from stdin",
	Long: `Each input line is key,value... with one value per --set column.
Rows are grouped by physical table and sent as one batch per table. The
update runs as a tracked job holding the lock apply:<base-table>.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base := args[0]

		strategy, err := parseStrategy(sqlStrategy)
		if err != nil {
			return err
		}
		rows, err := readRows(cmd.InOrStdin(), len(sqlSetFields))
		if err != nil {
			return err
		}
		if cfg.Catalog.DSN == "" {
			return errors.New("catalog dsn is required to apply updates")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r, closer, err := newRouter()
		if err != nil {
			return err
		}
		defer closer()

		store, err := qdb.NewQDB(&cfg.QDB)
		if err != nil {
			return err
		}
		defer store.Close()

		pool, err := pgxpool.New(ctx, cfg.Catalog.DSN)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()

		groups := batchupdate.PartitionOrdered(rows,
			func(row batchupdate.Row) string { return row.Key.(string) },
			func(k string) string { return r.Resolve(base, k) })
		u := batchupdate.Update{
			Operation:  "apply " + base,
			SetFields:  sqlSetFields,
			WhereField: sqlWhere,
			Strategy:   strategy,
		}

		applier := batchupdate.NewApplier(pool, cfg.Jobs.MaxParallel)
		executor := dlock.NewExecutor(dlock.New(store, &cfg.Lock), &cfg.Lock)
		runner := jobs.NewRunner(tasks.NewRegistry(), cfg.Jobs.MaxParallel)

		res, err := runner.Run(ctx, time.Now().UnixNano(), func(ctx context.Context, cancelled func() bool) error {
			ran, err := executor.Execute(ctx, "apply:"+base, func(ctx context.Context) error {
				if cancelled() {
					return context.Canceled
				}
				summary, err := applier.Apply(ctx, u, groups)
				if err != nil {
					return err
				}
				for table, tr := range summary.Tables {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%d\n", table, tr.Rows, tr.Affected)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if !ran {
				return errors.Errorf("another apply on %s is in progress", base)
			}
			return nil
		})
		if err != nil {
			return err
		}

		sglog.Zero.Info().
			Str("state", string(res.State)).
			Dur("duration", res.Duration).
			Msg("shardgate: apply finished")
		return res.Err
	},
}

// readRows parses key,value... records. Every record must carry exactly
// nValues values.
func readRows(in io.Reader, nValues int) ([]batchupdate.Row, error) {
	if nValues == 0 {
		return nil, errors.New("at least one --set column is required")
	}

	rd := csv.NewReader(in)
	rd.FieldsPerRecord = nValues + 1
	rd.TrimLeadingSpace = true

	var rows []batchupdate.Row
	for {
		rec, err := rd.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "read rows")
		}

		values := make([]any, nValues)
		for i, v := range rec[1:] {
			values[i] = v
		}
		rows = append(rows, batchupdate.Row{Key: rec[0], Values: values})
	}
}
