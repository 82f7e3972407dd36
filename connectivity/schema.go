package connectivity

import (
	"database/sql"

	"github.com/feedsift/feedsift/internal/dbopen"
)

// Schema defines the routes table that drives the router.
// Each row maps a service name to a dispatch strategy.
//
// Strategies:
//   - "local": dispatch to an in-memory Handler registered via RegisterLocal.
//   - "http":  dispatch via the HTTP transport factory.
//   - "noop":  silently succeed without doing anything (disable a service).
//
// The config column holds per-route JSON (timeouts, content type). Any
// write to this database increments PRAGMA data_version, which the Watch
// loop detects to trigger a hot-reload.
const Schema = `
CREATE TABLE IF NOT EXISTS routes (
    service_name TEXT PRIMARY KEY,
    strategy     TEXT NOT NULL CHECK(strategy IN ('local', 'http', 'noop')),
    endpoint     TEXT,
    config       TEXT DEFAULT '{}',
    updated_at   INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_routes_strategy ON routes(strategy);

CREATE TRIGGER IF NOT EXISTS trg_routes_updated_at
AFTER UPDATE ON routes
FOR EACH ROW
BEGIN
    UPDATE routes SET updated_at = strftime('%s', 'now') WHERE service_name = NEW.service_name;
END;
`

// OpenDB opens the routes database with production-safe pragmas. The
// caller must blank-import the SQLite driver:
//
//	import _ "modernc.org/sqlite"
func OpenDB(path string) (*sql.DB, error) {
	return dbopen.Open(path, dbopen.WithBusyTimeout(5000))
}

// Init creates the routes table if it doesn't exist.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
