package qrouter_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nsrs/shardgate/pkg/catalog/mock"
	"github.com/nsrs/shardgate/pkg/config"
	"github.com/nsrs/shardgate/router/qrouter"
	"github.com/nsrs/shardgate/router/shardmap"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func defaultRouter(t *testing.T, opts ...qrouter.Option) *qrouter.TableRouter {
	t.Helper()
	cfg := config.Default()
	r, err := qrouter.NewTableRouter(&cfg.Sharding, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestResolveNumbers(t *testing.T) {
	assert := assert.New(t)
	r := defaultRouter(t)

	for _, p := range shardmap.DefaultNumberPrefixes {
		n := p + "12345678"
		assert.Equal("number_resource_"+p, r.Resolve(qrouter.NumberResource, n))
	}

	// 3-digit prefixes outside the shard set land in the default table
	for _, p := range []string{"100", "170", "199", "999"} {
		assert.Equal("number_resource", r.Resolve(qrouter.NumberResource, p+"00000000"))
	}

	assert.Equal("number_resource", r.Resolve(qrouter.NumberResource, "13"))
	assert.Equal("number_resource", r.Resolve(qrouter.NumberResource, ""))
}

func TestResolveSimCards(t *testing.T) {
	assert := assert.New(t)
	r := defaultRouter(t)

	for n := 0; n < 1000; n++ {
		iccid := fmt.Sprintf("89860012345678901%03d", n)
		assert.Equal(fmt.Sprintf("sim_card_%d", n%10), r.Resolve(qrouter.SimCard, iccid))
	}

	assert.Equal("sim_card_0", r.Resolve(qrouter.SimCard, "12"))
	assert.Equal("sim_card_0", r.Resolve(qrouter.SimCard, "8986001234567890ABC"))
	assert.Equal("imsi_resource_7", r.Resolve(qrouter.ImsiResource, "460001234567897"))
}

func TestResolveUnlistedAndUnknown(t *testing.T) {
	assert := assert.New(t)
	r := defaultRouter(t)

	assert.Equal("number_imsi_binding_139", r.Resolve(qrouter.NumberImsiBinding, "13912345678"))
	assert.Equal("number_imsi_binding_199", r.Resolve(qrouter.NumberImsiBinding, "19912345678"))
	// not a plausible identifier
	assert.Equal("number_imsi_binding", r.Resolve(qrouter.NumberImsiBinding, "1-912345678"))

	assert.Equal("orders", r.Resolve("orders", "13912345678"))
	assert.Equal([]string{"orders"}, r.ListAllTables("orders"))
}

func TestListAllTables(t *testing.T) {
	assert := assert.New(t)
	r := defaultRouter(t)

	tables := r.ListAllTables(qrouter.NumberResource)
	assert.Len(tables, 26)
	assert.Equal("number_resource_139", tables[0])
	assert.Equal("number_resource", tables[25])

	// sim_card_0 is both a shard and the default table
	sims := r.ListAllTables(qrouter.SimCard)
	assert.Len(sims, 10)
	assert.Contains(sims, "sim_card_0")
}

func TestRandomTableOrder(t *testing.T) {
	assert := assert.New(t)

	reverse := func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	r := defaultRouter(t, qrouter.WithShuffle(reverse))

	tables := r.RandomTableOrder(qrouter.SimCard)
	assert.Equal("sim_card_9", tables[0])
	assert.Equal("sim_card_0", tables[9])

	assert.Len(r.RandomTables(qrouter.NumberResource, 0), config.DefaultMaxSampledTables)
	assert.Len(r.RandomTables(qrouter.NumberResource, 3), 3)
	assert.Len(r.RandomTables(qrouter.SimCard, 100), 10)

	// the default order is a permutation of the shard tables
	shuffled := defaultRouter(t).RandomTableOrder(qrouter.NumberResource)
	assert.ElementsMatch(r.ListAllTables(qrouter.NumberResource)[:25], shuffled)
}

func TestPrefixSupported(t *testing.T) {
	assert := assert.New(t)
	r := defaultRouter(t)

	assert.True(r.IsNumberPrefixSupported("139"))
	assert.True(r.IsNumberPrefixSupported("13912345678"))
	assert.False(r.IsNumberPrefixSupported("17012345678"))
	assert.False(r.IsNumberPrefixSupported("13"))
	assert.True(r.IsPrefixSupported(qrouter.SimCard, "3"))
	assert.False(r.IsPrefixSupported("orders", "3"))
	assert.Equal("139", r.ShardKey(qrouter.NumberResource, "13912345678"))
	assert.Equal("", r.ShardKey("orders", "13912345678"))
}

func TestTableExists(t *testing.T) {
	assert := assert.New(t)

	ctrl := gomock.NewController(t)
	cat := mock.NewMockCatalog(ctrl)
	ctx := context.Background()

	cat.EXPECT().TableExists(ctx, "sim_card_1").Return(true, nil).Times(2)
	cat.EXPECT().TableExists(ctx, "sim_card_2").Return(false, errors.New("timeout"))

	r := defaultRouter(t, qrouter.WithCatalog(cat))

	// one-off probes are not cached
	assert.True(r.TableExists(ctx, "sim_card_1"))
	assert.True(r.TableExists(ctx, "sim_card_1"))
	assert.False(r.TableExists(ctx, "sim_card_2"))

	assert.False(defaultRouter(t).TableExists(ctx, "sim_card_1"))
}

func TestMaintenanceSession(t *testing.T) {
	assert := assert.New(t)

	ctrl := gomock.NewController(t)
	cat := mock.NewMockCatalog(ctrl)
	ctx := context.Background()

	cat.EXPECT().TableExists(ctx, "number_resource_139").Return(true, nil).Times(2)

	r := defaultRouter(t, qrouter.WithCatalog(cat))

	s1 := r.NewMaintenanceSession()
	assert.True(s1.TableExists(ctx, "number_resource_139"))
	assert.True(s1.TableExists(ctx, "number_resource_139"))

	// a new operation probes again
	s2 := r.NewMaintenanceSession()
	assert.True(s2.TableExists(ctx, "number_resource_139"))
}

func TestReload(t *testing.T) {
	assert := assert.New(t)
	r := defaultRouter(t)

	assert.Equal("number_resource", r.Resolve(qrouter.NumberResource, "19912345678"))

	err := r.Reload(&config.Sharding{Tables: []config.TableCfg{{
		BaseTable:       qrouter.NumberResource,
		Strategy:        config.StrategyPrefix,
		PrefixLength:    3,
		ActualDataNodes: "ds0.number_resource_199,ds0.number_resource_139",
	}}})
	assert.NoError(err)
	assert.Equal("number_resource_199", r.Resolve(qrouter.NumberResource, "19912345678"))
	assert.Equal([]string{qrouter.NumberResource}, r.BaseTables())

	// a broken config keeps the current snapshot
	err = r.Reload(&config.Sharding{Tables: []config.TableCfg{{BaseTable: "x", Strategy: "range"}}})
	assert.Error(err)
	assert.Equal("number_resource_199", r.Resolve(qrouter.NumberResource, "19912345678"))
}

func TestResolveDuringReload(t *testing.T) {
	r := defaultRouter(t)
	cfg := config.Default()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				tbl := r.Resolve(qrouter.NumberResource, "13912345678")
				if tbl != "number_resource_139" {
					t.Errorf("unexpected table %s", tbl)
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		assert.NoError(t, r.Reload(&cfg.Sharding))
	}
	wg.Wait()
}
