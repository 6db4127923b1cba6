// Package catalog probes the database catalog for physical tables.
package catalog

//go:generate mockgen -source=./catalog.go -destination=./mock/catalog_mock.go -package=mock

import (
	"context"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/nsrs/shardgate/pkg/config"
)

type Catalog interface {
	TableExists(ctx context.Context, name string) (bool, error)
}

type SQLCatalog struct {
	db *sqlx.DB
}

var _ Catalog = &SQLCatalog{}

const tableExistsQuery = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`

// NewSQLCatalog opens a lazily connected catalog. cfg.Driver is "postgres"
// (lib/pq) or "pgx".
func NewSQLCatalog(cfg *config.Catalog) (*SQLCatalog, error) {
	if cfg.DSN == "" {
		return nil, errors.New("catalog dsn is not configured")
	}
	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "open catalog with driver %s", cfg.Driver)
	}
	return &SQLCatalog{db: db}, nil
}

func NewSQLCatalogFromDB(db *sqlx.DB) *SQLCatalog {
	return &SQLCatalog{db: db}
}

// TableExists reports whether name is a table in the current schema.
// Unquoted identifiers are folded to lower case.
func (c *SQLCatalog) TableExists(ctx context.Context, name string) (bool, error) {
	var count int
	if err := c.db.GetContext(ctx, &count, c.db.Rebind(tableExistsQuery), strings.ToLower(name)); err != nil {
		return false, errors.Wrapf(err, "probe table %s", name)
	}
	return count > 0, nil
}

func (c *SQLCatalog) Close() error {
	return c.db.Close()
}
