package statistics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ResolveOutcome labels how a key was routed.
type ResolveOutcome string

const (
	ResolveHit          = ResolveOutcome("hit")
	ResolveUnlisted     = ResolveOutcome("unlisted")
	ResolveDefault      = ResolveOutcome("default")
	ResolveUnknownTable = ResolveOutcome("unknown_table")
)

// LockResult labels the outcome of an acquire or release.
type LockResult string

const (
	LockAcquired   = LockResult("acquired")
	LockContended  = LockResult("contended")
	LockStoreError = LockResult("store_error")
	LockReleased   = LockResult("released")
	LockNotHeld    = LockResult("not_held")
)

var (
	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shardgate_resolve_total",
		Help: "Keys routed to a physical table, by base table and outcome",
	}, []string{"base_table", "outcome"})

	planTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shardgate_range_plans_total",
		Help: "Range queries optimized, by base table and plan kind",
	}, []string{"base_table", "plan"})

	planTables = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shardgate_range_plan_tables",
		Help:    "Number of physical tables a range plan visits",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	}, []string{"base_table"})

	lockTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shardgate_lock_operations_total",
		Help: "Distributed lock operations, by result",
	}, []string{"result"})

	lockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "shardgate_lock_acquire_wait_seconds",
		Help: "Time spent acquiring a distributed lock",
		Buckets: []float64{
			0.001, // 1ms
			0.005, // 5ms
			0.01,  // 10ms
			0.05,  // 50ms
			0.1,   // 100ms
			0.5,   // 500ms
			1.0,   // 1s
			5.0,   // 5s
			30.0,  // 30s
		},
	})

	batchRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shardgate_batch_rows_total",
		Help: "Rows sent in per-shard batch updates, by physical table",
	}, []string{"table"})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shardgate_batch_duration_seconds",
		Help:    "Duration of one per-shard batch update",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
	})

	runningTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shardgate_running_tasks",
		Help: "Tasks currently registered as running",
	})

	taskTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shardgate_tasks_total",
		Help: "Finished tasks, by terminal state",
	}, []string{"state"})
)

func RecordResolve(baseTable string, outcome ResolveOutcome) {
	resolveTotal.WithLabelValues(baseTable, string(outcome)).Inc()
}

func RecordPlan(baseTable, kind string, tables int) {
	planTotal.WithLabelValues(baseTable, kind).Inc()
	planTables.WithLabelValues(baseTable).Observe(float64(tables))
}

func RecordLock(result LockResult) {
	lockTotal.WithLabelValues(string(result)).Inc()
}

func RecordLockWait(d time.Duration) {
	lockWait.Observe(d.Seconds())
}

func RecordBatch(table string, rows int, d time.Duration) {
	batchRows.WithLabelValues(table).Add(float64(rows))
	batchDuration.Observe(d.Seconds())
}

func TaskStarted() {
	runningTasks.Inc()
}

func TaskFinished(state string) {
	runningTasks.Dec()
	taskTotal.WithLabelValues(state).Inc()
}
