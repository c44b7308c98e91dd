package authclient

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// StoreConfig configures the on-device session stores.
type StoreConfig struct {
	// Path is the sqlite file backing both stores. ":memory:" is valid for
	// ephemeral sessions and tests.
	Path string
	// Passphrase feeds key derivation for credential encryption at rest.
	Passphrase string
	// Salt is per-installation. It is persisted by the host, not by us.
	Salt []byte
}

// OpenDB opens the local session database and provisions its tables.
func OpenDB(ctx context.Context, path string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open session database")
	}

	// the store is single-process local state
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	models := []any{
		(*credentialRecord)(nil),
		(*settingRecord)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to provision session tables")
		}
	}

	return db, nil
}
