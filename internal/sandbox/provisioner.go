// Package sandbox materializes ephemeral, isolated datasets for query
// evaluation. All evaluations share one process-wide SQLite engine; the
// provisioner's unique namespace identifiers are the sole isolation
// mechanism, so uniqueness is load-bearing under concurrent load.
package sandbox

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/terra-clan/sql-escape-room/internal/models"
)

// Provisioner creates and destroys per-evaluation sandbox namespaces on a
// shared engine handle.
type Provisioner struct {
	db *sql.DB
}

// NewProvisioner opens the shared SQLite engine. Every pooled connection
// starts with an empty in-memory main database; evaluation datasets live
// in attached namespaces only.
func NewProvisioner() (*Provisioner, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open sandbox engine: %w", err)
	}

	db.SetMaxIdleConns(4)

	return &Provisioner{db: db}, nil
}

// Ping checks that the engine is operational
func (p *Provisioner) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close shuts down the shared engine
func (p *Provisioner) Close() error {
	return p.db.Close()
}

// Handle is one provisioned sandbox instance. It pins a pool connection
// for the duration of a single evaluation and never outlives it.
type Handle struct {
	id   string
	conn *sql.Conn
	once sync.Once
}

// ID returns the sandbox namespace identifier
func (h *Handle) ID() string {
	return h.id
}

// Provision allocates a fresh isolated namespace, creates one table per
// schema entry with columns in declared order, and inserts every seed row
// in order. The seed data is copied into the namespace; a write statement
// that slips past admission can only ever touch the throwaway copy.
func (p *Provisioner) Provision(ctx context.Context, level *models.Level) (*Handle, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire engine connection: %w", err)
	}

	h := &Handle{
		id:   newSandboxID(),
		conn: conn,
	}

	// The namespace id is internally generated and the table/column names
	// were identifier-validated at catalog load; this is the only place
	// identifiers are interpolated into SQL text.
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("ATTACH DATABASE ':memory:' AS %s", h.id)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to attach namespace %s: %w", h.id, err)
	}

	for _, table := range level.Tables {
		if err := h.createTable(ctx, table); err != nil {
			p.Teardown(h)
			return nil, fmt.Errorf("failed to populate namespace %s: %w", h.id, err)
		}
	}

	return h, nil
}

// Teardown detaches the sandbox namespace and releases its connection.
// It is idempotent and best-effort: failures are logged and swallowed so
// cleanup can never mask the evaluation's own verdict.
func (p *Provisioner) Teardown(h *Handle) {
	if h == nil {
		return
	}

	h.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := h.conn.ExecContext(ctx, "DETACH DATABASE "+h.id); err != nil {
			slog.Warn("failed to detach sandbox namespace", "sandbox_id", h.id, "error", err)

			// Poison the connection so the pool discards it rather than
			// recycling one with a stale namespace still attached.
			_ = h.conn.Raw(func(driverConn any) error {
				return driver.ErrBadConn
			})
		}

		if err := h.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			slog.Warn("failed to release sandbox connection", "sandbox_id", h.id, "error", err)
		}
	})
}

// Query executes one SQL statement inside the sandbox namespace and
// captures the full result set.
func (h *Handle) Query(ctx context.Context, queryText string) (*ResultSet, error) {
	rows, err := h.conn.QueryContext(ctx, queryText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &ResultSet{Columns: columns}

	for rows.Next() {
		values := make([]any, len(columns))
		scanArgs := make([]any, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}

		if err := rows.Scan(scanArgs...); err != nil {
			return nil, err
		}

		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}

		result.Rows = append(result.Rows, values)
	}

	return result, rows.Err()
}

// createTable creates and seeds one table inside the namespace
func (h *Handle) createTable(ctx context.Context, table models.Table) error {
	quoted := make([]string, len(table.Columns))
	placeholders := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		quoted[i] = quoteIdent(col)
		placeholders[i] = "?"
	}

	// Columns are declared without type affinity so seed values keep the
	// exact types they carry in the catalog.
	ddl := fmt.Sprintf("CREATE TABLE %s.%s (%s)",
		h.id, quoteIdent(table.Name), strings.Join(quoted, ", "))
	if _, err := h.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", table.Name, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES (%s)",
		h.id, quoteIdent(table.Name),
		strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	for i, row := range table.Rows {
		args := make([]any, len(table.Columns))
		for j, col := range table.Columns {
			args[j] = row[col]
		}
		if _, err := h.conn.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("insert row %d into %s: %w", i, table.Name, err)
		}
	}

	return nil
}

// newSandboxID combines a monotonic time component with a random suffix
// so concurrent evaluations cannot collide on a namespace.
func newSandboxID() string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:9]
	return fmt.Sprintf("sandbox_%d_%s", time.Now().UnixNano(), suffix)
}

// quoteIdent wraps an already-validated identifier in double quotes so
// seed tables may use names that collide with SQL keywords.
func quoteIdent(name string) string {
	return `"` + name + `"`
}
