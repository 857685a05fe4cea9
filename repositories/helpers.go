package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx, so repository methods
// that must take part in a caller's transaction accept it explicitly.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx is a transaction handed out by a TxBeginner: an SQLExecutor the caller
// must Commit or Rollback.
type Tx interface {
	SQLExecutor
	Commit() error
	Rollback() error
}

// TxBeginner starts transactions without binding the caller to *sql.DB.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
}

type sqlTxBeginner struct {
	db *sql.DB
}

// NewTxBeginner adapts *sql.DB to the TxBeginner interface.
func NewTxBeginner(db *sql.DB) TxBeginner {
	return sqlTxBeginner{db: db}
}

func (b sqlTxBeginner) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	return b.db.BeginTx(ctx, opts)
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}
