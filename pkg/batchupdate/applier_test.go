package batchupdate_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nsrs/shardgate/pkg/batchupdate"
	"github.com/nsrs/shardgate/pkg/batchupdate/mock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func rowsFor(keys ...string) []batchupdate.Row {
	rows := make([]batchupdate.Row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, batchupdate.Row{Key: k, Values: []any{"IDLE"}})
	}
	return rows
}

func TestApplierRowByRow(t *testing.T) {
	assert := assert.New(t)

	ctrl := gomock.NewController(t)
	db := mock.NewMockBatchSender(ctrl)

	var mu sync.Mutex
	sent := map[string]*pgx.Batch{}

	db.EXPECT().SendBatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, b *pgx.Batch) pgx.BatchResults {
			table := strings.Fields(b.QueuedQueries[0].SQL)[1]
			mu.Lock()
			sent[table] = b
			mu.Unlock()

			br := mock.NewMockBatchResults(ctrl)
			br.EXPECT().Exec().Return(pgconn.NewCommandTag("UPDATE 1"), nil).Times(b.Len())
			br.EXPECT().Close().Return(nil)
			return br
		}).Times(2)

	groups := []batchupdate.Group[batchupdate.Row]{
		{Shard: "number_resource_139", Items: rowsFor("13900000001", "13900000002")},
		{Shard: "number_resource_177", Items: rowsFor("17700000001")},
		{Shard: "number_resource_188"},
	}

	a := batchupdate.NewApplier(db, 4)
	summary, err := a.Apply(context.Background(), batchupdate.Update{
		Operation:  "release",
		SetFields:  []string{"status"},
		WhereField: "number",
		Strategy:   batchupdate.RowByRow,
	}, groups)

	assert.NoError(err)
	assert.Equal(3, summary.Rows)
	assert.Equal(int64(3), summary.Affected)
	assert.Equal(batchupdate.TableResult{Rows: 2, Affected: 2}, summary.Tables["number_resource_139"])
	assert.Len(summary.Tables, 2)

	b := sent["number_resource_139"]
	assert.Equal(2, b.Len())
	assert.Equal("UPDATE number_resource_139 SET status = $1 WHERE number = $2", b.QueuedQueries[0].SQL)
	assert.Equal([]any{"IDLE", "13900000002"}, b.QueuedQueries[1].Arguments)
}

func TestApplierCaseWhen(t *testing.T) {
	assert := assert.New(t)

	ctrl := gomock.NewController(t)
	db := mock.NewMockBatchSender(ctrl)
	br := mock.NewMockBatchResults(ctrl)

	db.EXPECT().SendBatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, b *pgx.Batch) pgx.BatchResults {
			assert.Equal(1, b.Len())
			assert.Equal("UPDATE sim_card_1 SET state = CASE iccid WHEN $1 THEN $2 WHEN $3 THEN $4 ELSE state END WHERE iccid IN ($5, $6)",
				b.QueuedQueries[0].SQL)
			assert.Equal([]any{"001", "IDLE", "011", "IDLE", "001", "011"}, b.QueuedQueries[0].Arguments)
			return br
		})
	br.EXPECT().Exec().Return(pgconn.NewCommandTag("UPDATE 2"), nil)
	br.EXPECT().Close().Return(nil)

	a := batchupdate.NewApplier(db, 0)
	summary, err := a.Apply(context.Background(), batchupdate.Update{
		Operation:  "recycle",
		SetFields:  []string{"state"},
		WhereField: "iccid",
		Strategy:   batchupdate.CaseWhen,
	}, []batchupdate.Group[batchupdate.Row]{{Shard: "sim_card_1", Items: rowsFor("001", "011")}})

	assert.NoError(err)
	assert.Equal(int64(2), summary.Affected)
}

func TestApplierPropagatesErrors(t *testing.T) {
	assert := assert.New(t)

	ctrl := gomock.NewController(t)
	db := mock.NewMockBatchSender(ctrl)
	br := mock.NewMockBatchResults(ctrl)

	db.EXPECT().SendBatch(gomock.Any(), gomock.Any()).Return(br)
	br.EXPECT().Exec().Return(pgconn.CommandTag{}, errors.New("relation does not exist"))
	br.EXPECT().Close().Return(nil)

	a := batchupdate.NewApplier(db, 1)
	_, err := a.Apply(context.Background(), batchupdate.Update{
		Operation:  "release",
		SetFields:  []string{"status"},
		WhereField: "number",
	}, []batchupdate.Group[batchupdate.Row]{{Shard: "number_resource_139", Items: rowsFor("13900000001")}})

	assert.ErrorContains(err, "number_resource_139")
}

func TestApplierRejectsMisalignedRows(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := mock.NewMockBatchSender(ctrl)

	a := batchupdate.NewApplier(db, 1)
	_, err := a.Apply(context.Background(), batchupdate.Update{
		Operation:  "release",
		SetFields:  []string{"status", "update_time"},
		WhereField: "number",
	}, []batchupdate.Group[batchupdate.Row]{{Shard: "number_resource_139", Items: rowsFor("13900000001")}})

	assert.Error(t, err)
}
