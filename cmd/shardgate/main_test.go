package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nsrs/shardgate/pkg/batchupdate"
	"github.com/nsrs/shardgate/pkg/config"
	"github.com/nsrs/shardgate/router/plan"
	"github.com/stretchr/testify/assert"
)

func TestReadRows(t *testing.T) {
	assert := assert.New(t)

	rows, err := readRows(strings.NewReader("13912345678, active,1\n17012345678,idle,2\n"), 2)
	assert.NoError(err)
	assert.Equal([]batchupdate.Row{
		{Key: "13912345678", Values: []any{"active", "1"}},
		{Key: "17012345678", Values: []any{"idle", "2"}},
	}, rows)

	_, err = readRows(strings.NewReader("13912345678,active\n"), 2)
	assert.Error(err)

	_, err = readRows(strings.NewReader("13912345678\n"), 0)
	assert.Error(err)
}

func TestReadKeys(t *testing.T) {
	keys, err := readKeys(strings.NewReader("139\n\n  170 \n"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"139", "170"}, keys)
}

func TestParseStrategy(t *testing.T) {
	assert := assert.New(t)

	for _, tt := range []struct {
		in      string
		exp     batchupdate.Strategy
		wantErr bool
	}{
		{in: "", exp: batchupdate.RowByRow},
		{in: "row-by-row", exp: batchupdate.RowByRow},
		{in: "case-when", exp: batchupdate.CaseWhen},
		{in: "upsert", wantErr: true},
	} {
		s, err := parseStrategy(tt.in)
		if tt.wantErr {
			assert.Error(err, tt.in)
			continue
		}
		assert.NoError(err, tt.in)
		assert.Equal(tt.exp, s, tt.in)
	}
}

func TestDescribePlan(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("dispatch to number_resource_139 (shard key 139)",
		describePlan(plan.ShardDispatchPlan{Table: "number_resource_139", ShardKey: "139"}))
	assert.Equal("scatter over 1 tables: base table is not sharded",
		describePlan(plan.ScatterPlan{TableList: []string{"x"}, Reason: "base table is not sharded"}))
}

func TestRouteCommand(t *testing.T) {
	assert := assert.New(t)

	cfg = config.Default()
	var out bytes.Buffer
	routeCmd.SetOut(&out)

	err := routeCmd.RunE(routeCmd, []string{"number_resource", "13912345678", "1"})
	assert.NoError(err)
	assert.Equal("13912345678\t139\tnumber_resource_139\n1\t\tnumber_resource\n", out.String())
}
