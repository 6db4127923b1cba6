package cache_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nsrs/shardgate/pkg/catalog/mock"
	"github.com/nsrs/shardgate/router/cache"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestCatalogCacheMemoizes(t *testing.T) {
	assert := assert.New(t)

	ctrl := gomock.NewController(t)
	cat := mock.NewMockCatalog(ctrl)
	ctx := context.Background()

	cat.EXPECT().TableExists(ctx, "sim_card_1").Return(true, nil).Times(1)
	cat.EXPECT().TableExists(ctx, "sim_card_2").Return(false, nil).Times(1)

	c := cache.NewCatalogCache(cat)
	for i := 0; i < 3; i++ {
		assert.True(c.TableExists(ctx, "sim_card_1"))
		assert.False(c.TableExists(ctx, "sim_card_2"))
	}
}

func TestCatalogCacheDoesNotCacheErrors(t *testing.T) {
	assert := assert.New(t)

	ctrl := gomock.NewController(t)
	cat := mock.NewMockCatalog(ctrl)
	ctx := context.Background()

	gomock.InOrder(
		cat.EXPECT().TableExists(ctx, "sim_card_3").Return(false, errors.New("connection refused")),
		cat.EXPECT().TableExists(ctx, "sim_card_3").Return(true, nil),
	)

	c := cache.NewCatalogCache(cat)
	assert.False(c.TableExists(ctx, "sim_card_3"))
	assert.True(c.TableExists(ctx, "sim_card_3"))
}

func TestExistingTables(t *testing.T) {
	ctrl := gomock.NewController(t)
	cat := mock.NewMockCatalog(ctrl)
	ctx := context.Background()

	cat.EXPECT().TableExists(ctx, "sim_card_0").Return(true, nil)
	cat.EXPECT().TableExists(ctx, "sim_card_1").Return(false, nil)
	cat.EXPECT().TableExists(ctx, "sim_card_2").Return(true, nil)

	c := cache.NewCatalogCache(cat)
	assert.Equal(t, []string{"sim_card_0", "sim_card_2"}, c.ExistingTables(ctx, []string{"sim_card_0", "sim_card_1", "sim_card_2"}))
}
