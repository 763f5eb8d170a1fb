// Package migrations holds the goose migrations for the SQLite store.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/salafibot/salafibot/internal/logging"
)

//go:embed *.sql
var FS embed.FS

// gooseLogger routes goose progress output to debug logs.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	logging.Debugf("[db] "+strings.TrimSuffix(format, "\n"), v...)
}

func (gooseLogger) Fatalf(format string, v ...any) {
	logging.Errorf("[db] "+strings.TrimSuffix(format, "\n"), v...)
}

// Run applies all pending migrations.
func Run(db *sql.DB) error {
	goose.SetBaseFS(FS)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
