package database

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	pkgdb "github.com/electrabid/backend/pkg/database"
)

// asPgxTx unwraps the domain transaction handle for use in SQL statements.
func asPgxTx(tx pkgdb.Tx) (pgx.Tx, error) {
	return pkgdb.UnwrapPgx(tx)
}

// isUniqueViolation reports whether the error is a postgres unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
