package connectivity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Admin provides CRUD operations on the routes table, exposed through
// the control surface so an operator (or agent) can re-route or disable
// services at runtime. All mutations go through SQLite, so the Watch
// loop picks up changes automatically.
type Admin struct {
	db *sql.DB
}

// NewAdmin creates an Admin backed by the given routes database.
// The database must have the routes schema applied (via Init).
func NewAdmin(db *sql.DB) *Admin {
	return &Admin{db: db}
}

// RouteRow represents a single row from the routes table.
type RouteRow struct {
	ServiceName string          `json:"service_name"`
	Strategy    string          `json:"strategy"`
	Endpoint    string          `json:"endpoint,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	UpdatedAt   int64           `json:"updated_at"`
}

// ListRoutes returns all routes.
func (a *Admin) ListRoutes(ctx context.Context) ([]RouteRow, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT service_name, strategy, COALESCE(endpoint, ''), COALESCE(config, '{}'), updated_at FROM routes ORDER BY service_name`)
	if err != nil {
		return nil, fmt.Errorf("admin: list routes: %w", err)
	}
	defer rows.Close()

	var result []RouteRow
	for rows.Next() {
		var r RouteRow
		var cfgStr string
		if err := rows.Scan(&r.ServiceName, &r.Strategy, &r.Endpoint, &cfgStr, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("admin: scan route: %w", err)
		}
		r.Config = json.RawMessage(cfgStr)
		result = append(result, r)
	}
	return result, rows.Err()
}

// UpsertRoute inserts or updates a route. The watcher will detect the
// change and trigger a Reload automatically.
func (a *Admin) UpsertRoute(ctx context.Context, serviceName, strategy, endpoint string, config json.RawMessage) error {
	if config == nil {
		config = json.RawMessage(`{}`)
	}
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO routes (service_name, strategy, endpoint, config)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(service_name) DO UPDATE SET
		     strategy = excluded.strategy,
		     endpoint = excluded.endpoint,
		     config   = excluded.config`,
		serviceName, strategy, endpoint, string(config))
	if err != nil {
		return fmt.Errorf("admin: upsert route: %w", err)
	}
	return nil
}

// ErrRouteNotFound is returned by SetStrategy for an unknown service.
var ErrRouteNotFound = errors.New("admin: route not found")

// SetStrategy changes only the strategy of an existing route. Set it to
// "noop" to disable a service with zero downtime, back to "local" to
// re-enable.
func (a *Admin) SetStrategy(ctx context.Context, serviceName, strategy string) error {
	result, err := a.db.ExecContext(ctx,
		`UPDATE routes SET strategy = ? WHERE service_name = ?`,
		strategy, serviceName)
	if err != nil {
		return fmt.Errorf("admin: set strategy: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRouteNotFound, serviceName)
	}
	return nil
}
