package ledger

import (
	"context"
	_ "embed"
)

//go:embed schema.sql
var schema string

// Migrate creates the files and file_versions tables if they do not exist.
func (l *Ledger) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, schema)
	return err
}
