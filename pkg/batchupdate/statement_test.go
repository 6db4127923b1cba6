package batchupdate_test

import (
	"testing"

	"github.com/nsrs/shardgate/pkg/batchupdate"
	"github.com/nsrs/shardgate/pkg/models/sgerror"
	"github.com/stretchr/testify/assert"
)

func TestRowByRowUpdate(t *testing.T) {
	assert := assert.New(t)

	sql, err := batchupdate.RowByRowUpdate("number_resource_139", []string{"status", "update_time"}, "number", 2)
	assert.NoError(err)
	assert.Equal("UPDATE number_resource_139 SET status = ?, update_time = ? WHERE number = ?; "+
		"UPDATE number_resource_139 SET status = ?, update_time = ? WHERE number = ?", sql)

	sql, err = batchupdate.Builder{Format: batchupdate.Dollar}.RowByRow("sim_card_3", []string{"state"}, "iccid", 2)
	assert.NoError(err)
	assert.Equal("UPDATE sim_card_3 SET state = $1 WHERE iccid = $2; UPDATE sim_card_3 SET state = $3 WHERE iccid = $4", sql)
}

func TestCaseWhenUpdate(t *testing.T) {
	assert := assert.New(t)

	sql, err := batchupdate.CaseWhenUpdate("number_resource_139", []string{"status", "update_time"}, "number", 2)
	assert.NoError(err)
	assert.Equal("UPDATE number_resource_139 SET "+
		"status = CASE number WHEN ? THEN ? WHEN ? THEN ? ELSE status END, "+
		"update_time = CASE number WHEN ? THEN ? WHEN ? THEN ? ELSE update_time END "+
		"WHERE number IN (?, ?)", sql)

	sql, err = batchupdate.Builder{Format: batchupdate.Dollar}.CaseWhen("public.sim_card_3", []string{"state", "batch_id"}, "iccid", 2)
	assert.NoError(err)
	assert.Equal("UPDATE public.sim_card_3 SET "+
		"state = CASE iccid WHEN $1 THEN $2 WHEN $3 THEN $4 ELSE state END, "+
		"batch_id = CASE iccid WHEN $5 THEN $6 WHEN $7 THEN $8 ELSE batch_id END "+
		"WHERE iccid IN ($9, $10)", sql)
}

func TestStatementValidation(t *testing.T) {
	tests := []struct {
		name   string
		table  string
		fields []string
		where  string
		n      int
	}{
		{"zero rows", "sim_card_1", []string{"state"}, "iccid", 0},
		{"no fields", "sim_card_1", nil, "iccid", 1},
		{"bad table", "1table", []string{"state"}, "iccid", 1},
		{"injection in field", "sim_card_1", []string{"state = 1; DROP TABLE x; --"}, "iccid", 1},
		{"bad where", "sim_card_1", []string{"state"}, "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := batchupdate.RowByRowUpdate(tt.table, tt.fields, tt.where, tt.n)
			assert.True(t, sgerror.HasCode(err, sgerror.SG_STATEMENT_ERROR))
			_, err = batchupdate.CaseWhenUpdate(tt.table, tt.fields, tt.where, tt.n)
			assert.True(t, sgerror.HasCode(err, sgerror.SG_STATEMENT_ERROR))
		})
	}
}

func TestArgs(t *testing.T) {
	assert := assert.New(t)

	rows := []batchupdate.Row{
		{Key: "13900000001", Values: []any{1, "a"}},
		{Key: "13900000002", Values: []any{2, "b"}},
	}

	assert.Equal([]any{1, "a", "13900000001", 2, "b", "13900000002"}, batchupdate.RowArgs(rows))

	args, err := batchupdate.CaseWhenArgs(rows, 2)
	assert.NoError(err)
	assert.Equal([]any{
		"13900000001", 1, "13900000002", 2,
		"13900000001", "a", "13900000002", "b",
		"13900000001", "13900000002",
	}, args)

	_, err = batchupdate.CaseWhenArgs(rows, 3)
	assert.Error(err)
}
