package sandbox

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/terra-clan/sql-escape-room/internal/models"
)

// gateLevel mirrors the first puzzle: four personnel records, one of
// which holds the gatekeeper's access code.
func gateLevel() *models.Level {
	return &models.Level{
		ID:    1,
		Title: "The Perimeter Gate",
		Tables: []models.Table{
			{
				Name:    "users",
				Columns: []string{"id", "name", "role", "access_code"},
				Rows: []map[string]any{
					{"id": 1, "name": "Admin_01", "role": "Admin", "access_code": "9988"},
					{"id": 2, "name": "User_Guest", "role": "Guest", "access_code": "1234"},
					{"id": 3, "name": "Sys_Gate", "role": "Gatekeeper", "access_code": "7342"},
					{"id": 4, "name": "Dev_Ops", "role": "Developer", "access_code": "5566"},
				},
			},
		},
		ReferenceQuery: "SELECT access_code FROM users WHERE role='Gatekeeper';",
		UnlockCode:     "7342",
	}
}

func newTestProvisioner(t *testing.T) *Provisioner {
	t.Helper()

	prov, err := NewProvisioner()
	if err != nil {
		t.Fatalf("NewProvisioner failed: %v", err)
	}
	t.Cleanup(func() { prov.Close() })

	return prov
}

func TestProvisionAndQuery(t *testing.T) {
	prov := newTestProvisioner(t)
	ctx := context.Background()

	handle, err := prov.Provision(ctx, gateLevel())
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}
	defer prov.Teardown(handle)

	result, err := handle.Query(ctx, "SELECT access_code FROM users WHERE role='Gatekeeper';")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(result.Columns) != 1 || result.Columns[0] != "access_code" {
		t.Errorf("unexpected columns: %v", result.Columns)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	if got := result.Rows[0][0]; got != "7342" {
		t.Errorf("expected access code %q, got %v (%T)", "7342", got, got)
	}
}

func TestProvisionPreservesSeedTypes(t *testing.T) {
	prov := newTestProvisioner(t)
	ctx := context.Background()

	handle, err := prov.Provision(ctx, gateLevel())
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}
	defer prov.Teardown(handle)

	result, err := handle.Query(ctx, "SELECT id, access_code FROM users WHERE id=2;")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}

	// The engine stores ids numerically and codes as text; the result
	// classifier relies on these types staying distinct.
	if _, ok := result.Rows[0][0].(int64); !ok {
		t.Errorf("id should scan as int64, got %T", result.Rows[0][0])
	}
	if _, ok := result.Rows[0][1].(string); !ok {
		t.Errorf("access_code should scan as string, got %T", result.Rows[0][1])
	}
}

func TestTeardownDestroysNamespace(t *testing.T) {
	prov := newTestProvisioner(t)
	ctx := context.Background()

	handle, err := prov.Provision(ctx, gateLevel())
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	prov.Teardown(handle)

	if _, err := handle.Query(ctx, "SELECT * FROM users;"); err == nil {
		t.Error("query succeeded against a torn-down sandbox")
	}
}

func TestTeardownIsIdempotent(t *testing.T) {
	prov := newTestProvisioner(t)

	handle, err := prov.Provision(context.Background(), gateLevel())
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	prov.Teardown(handle)
	prov.Teardown(handle)
	prov.Teardown(nil)
}

func TestConcurrentSandboxesAreIsolated(t *testing.T) {
	prov := newTestProvisioner(t)
	ctx := context.Background()

	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			handle, err := prov.Provision(ctx, gateLevel())
			if err != nil {
				errs <- fmt.Errorf("worker %d: provision: %w", i, err)
				return
			}
			defer prov.Teardown(handle)

			// Mutate this sandbox's copy of the data. Visible inside the
			// same handle, never in a sibling.
			marker := fmt.Sprintf("worker_%d", i)
			insert := fmt.Sprintf("INSERT INTO users (id, name, role, access_code) VALUES (%d, '%s', 'Intruder', '0000');", 100+i, marker)
			if _, err := handle.Query(ctx, insert); err != nil {
				errs <- fmt.Errorf("worker %d: insert: %w", i, err)
				return
			}

			result, err := handle.Query(ctx, "SELECT COUNT(*) AS n FROM users;")
			if err != nil {
				errs <- fmt.Errorf("worker %d: count: %w", i, err)
				return
			}
			if got := result.Rows[0][0]; got != int64(5) {
				errs <- fmt.Errorf("worker %d: expected 5 rows after insert, got %v", i, got)
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestSandboxIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := newSandboxID()
		if seen[id] {
			t.Fatalf("duplicate sandbox id after %d draws: %s", i, id)
		}
		seen[id] = true
	}
}

func TestQuotedIdentifiersAllowKeywordNames(t *testing.T) {
	prov := newTestProvisioner(t)
	ctx := context.Background()

	level := &models.Level{
		ID:    9,
		Title: "keywords",
		Tables: []models.Table{
			{
				Name:    "orders",
				Columns: []string{"id", "order_status"},
				Rows: []map[string]any{
					{"id": 1, "order_status": "open"},
				},
			},
		},
		ReferenceQuery: "SELECT id FROM orders;",
		UnlockCode:     "x",
	}

	handle, err := prov.Provision(ctx, level)
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}
	defer prov.Teardown(handle)

	result, err := handle.Query(ctx, "SELECT order_status FROM orders;")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0][0] != "open" {
		t.Errorf("unexpected result: %+v", result.Rows)
	}
}
