package batchupdate

//go:generate mockgen -destination=./mock/pgx_mock.go -package=mock . BatchSender
//go:generate mockgen -destination=./mock/batch_results_mock.go -package=mock github.com/jackc/pgx/v5 BatchResults

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/nsrs/shardgate/pkg/models/sgerror"
	"github.com/nsrs/shardgate/pkg/sglog"
	"github.com/nsrs/shardgate/router/statistics"
)

// PostgreSQL accepts at most this many bind parameters per statement.
const maxBindParams = 65535

// BatchSender is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Strategy int

const (
	RowByRow Strategy = iota
	CaseWhen
)

func (s Strategy) String() string {
	if s == CaseWhen {
		return "case-when"
	}
	return "row-by-row"
}

// Update describes one logical batch update. Rows are grouped per physical
// table beforehand, typically with PartitionOrdered.
type Update struct {
	Operation  string
	SetFields  []string
	WhereField string
	Strategy   Strategy
}

type TableResult struct {
	Rows     int
	Affected int64
}

type Summary struct {
	Tables   map[string]TableResult
	Rows     int
	Affected int64
	Duration time.Duration
}

type Applier struct {
	db          BatchSender
	builder     Builder
	maxParallel int
}

// NewApplier runs at most maxParallel shard groups at once; non-positive
// means one at a time.
func NewApplier(db BatchSender, maxParallel int) *Applier {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &Applier{
		db:          db,
		builder:     Builder{Format: Dollar},
		maxParallel: maxParallel,
	}
}

// Apply sends every group as one pgx batch, one goroutine per group. The
// first failing group cancels the rest. Groups that already finished stay
// applied.
func (a *Applier) Apply(ctx context.Context, u Update, groups []Group[Row]) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Tables: make(map[string]TableResult, len(groups))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxParallel)

	for _, grp := range groups {
		if len(grp.Items) == 0 {
			continue
		}
		g.Go(func() error {
			t := time.Now()
			affected, err := a.applyGroup(gctx, u, grp)
			if err != nil {
				return errors.Wrapf(err, "batch %s on %s", u.Operation, grp.Shard)
			}
			statistics.RecordBatch(grp.Shard, len(grp.Items), time.Since(t))

			mu.Lock()
			defer mu.Unlock()
			res := summary.Tables[grp.Shard]
			res.Rows += len(grp.Items)
			res.Affected += affected
			summary.Tables[grp.Shard] = res
			summary.Rows += len(grp.Items)
			summary.Affected += affected
			return nil
		})
	}

	err := g.Wait()
	summary.Duration = time.Since(start)
	if err != nil {
		sglog.Zero.Error().
			Err(err).
			Str("operation", u.Operation).
			Msg("batchupdate: batch failed")
		return summary, err
	}

	logSummary(u, summary)
	return summary, nil
}

func (a *Applier) applyGroup(ctx context.Context, u Update, grp Group[Row]) (int64, error) {
	for _, r := range grp.Items {
		if len(r.Values) != len(u.SetFields) {
			return 0, sgerror.Newf(sgerror.SG_STATEMENT_ERROR, "row %v has %d values, want %d", r.Key, len(r.Values), len(u.SetFields))
		}
	}

	b := &pgx.Batch{}
	switch u.Strategy {
	case CaseWhen:
		perStmt := max(maxBindParams/(2*len(u.SetFields)+1), 1)
		for lo := 0; lo < len(grp.Items); lo += perStmt {
			chunk := grp.Items[lo:min(lo+perStmt, len(grp.Items))]
			stmt, err := a.builder.CaseWhen(grp.Shard, u.SetFields, u.WhereField, len(chunk))
			if err != nil {
				return 0, err
			}
			args, err := CaseWhenArgs(chunk, len(u.SetFields))
			if err != nil {
				return 0, err
			}
			b.Queue(stmt, args...)
		}
	default:
		stmt, err := a.builder.SingleRow(grp.Shard, u.SetFields, u.WhereField)
		if err != nil {
			return 0, err
		}
		for _, r := range grp.Items {
			b.Queue(stmt, RowArgs([]Row{r})...)
		}
	}

	sglog.Zero.Debug().
		Str("table", grp.Shard).
		Int("rows", len(grp.Items)).
		Int("statements", b.Len()).
		Str("strategy", u.Strategy.String()).
		Msg("batchupdate: sending batch")

	br := a.db.SendBatch(ctx, b)
	var affected int64
	for i := 0; i < b.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return affected, err
		}
		affected += tag.RowsAffected()
	}
	return affected, br.Close()
}

func logSummary(u Update, s *Summary) {
	sglog.Zero.Info().
		Str("operation", u.Operation).
		Int("records", s.Rows).
		Int("tables", len(s.Tables)).
		Int64("affected", s.Affected).
		Dur("duration", s.Duration).
		Msg("batchupdate: sharding batch completed")

	for table, res := range s.Tables {
		sglog.Zero.Debug().
			Str("table", table).
			Int("records", res.Rows).
			Int64("affected", res.Affected).
			Msg("batchupdate: table summary")
	}
}
