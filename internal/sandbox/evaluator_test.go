package sandbox

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/terra-clan/sql-escape-room/internal/catalog"
	"github.com/terra-clan/sql-escape-room/internal/models"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()

	cat := catalog.New()
	cat.Add(gateLevel())

	prov := newTestProvisioner(t)

	return NewEvaluator(cat, prov, 5*time.Second)
}

func TestEvaluateCorrectSubmission(t *testing.T) {
	e := newTestEvaluator(t)

	eval, err := e.Evaluate(context.Background(), 1, "SELECT access_code FROM users WHERE role='Gatekeeper';")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if eval.Verdict != models.VerdictCorrect {
		t.Fatalf("expected correct verdict, got %s (%s)", eval.Verdict, eval.Message)
	}
	if eval.UnlockCode != "7342" {
		t.Errorf("expected unlock code 7342, got %q", eval.UnlockCode)
	}
}

func TestEvaluateMismatch(t *testing.T) {
	e := newTestEvaluator(t)

	eval, err := e.Evaluate(context.Background(), 1, "SELECT access_code FROM users WHERE role='Admin';")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if eval.Verdict != models.VerdictMismatch {
		t.Fatalf("expected mismatch verdict, got %s", eval.Verdict)
	}
	if eval.Message != "Result mismatch" {
		t.Errorf("unexpected message: %q", eval.Message)
	}
	if eval.UnlockCode != "" {
		t.Errorf("mismatch must not carry an unlock code, got %q", eval.UnlockCode)
	}
}

func TestEvaluateMismatchOnValueType(t *testing.T) {
	e := newTestEvaluator(t)

	// Same column name and the right numeric value, but the reference
	// result carries the code as text.
	eval, err := e.Evaluate(context.Background(), 1, "SELECT 7342 AS access_code FROM users WHERE role='Gatekeeper';")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if eval.Verdict != models.VerdictMismatch {
		t.Errorf("numeric 7342 matched the text code, verdict = %s", eval.Verdict)
	}
}

func TestEvaluateMismatchOnRowOrder(t *testing.T) {
	cat := catalog.New()
	cat.Add(&models.Level{
		ID:    2,
		Title: "ordering",
		Tables: []models.Table{
			{
				Name:    "logs",
				Columns: []string{"seq"},
				Rows: []map[string]any{
					{"seq": 1}, {"seq": 2}, {"seq": 3},
				},
			},
		},
		ReferenceQuery: "SELECT seq FROM logs ORDER BY seq ASC;",
		UnlockCode:     "ordered",
	})

	e := NewEvaluator(cat, newTestProvisioner(t), 5*time.Second)

	eval, err := e.Evaluate(context.Background(), 2, "SELECT seq FROM logs ORDER BY seq DESC;")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if eval.Verdict != models.VerdictMismatch {
		t.Errorf("reversed ordering accepted, verdict = %s", eval.Verdict)
	}
}

func TestEvaluateRejectsBlockedKeyword(t *testing.T) {
	e := newTestEvaluator(t)

	eval, err := e.Evaluate(context.Background(), 1, "DROP TABLE users;")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if eval.Verdict != models.VerdictRejected {
		t.Fatalf("expected rejected verdict, got %s", eval.Verdict)
	}
	if eval.Message != "Unauthorized command detected" {
		t.Errorf("unexpected message: %q", eval.Message)
	}
	if eval.UnlockCode != "" {
		t.Errorf("rejection must not carry an unlock code, got %q", eval.UnlockCode)
	}
}

func TestEvaluateQueryError(t *testing.T) {
	e := newTestEvaluator(t)

	eval, err := e.Evaluate(context.Background(), 1, "SELEC access_code FROM users;")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if eval.Verdict != models.VerdictQueryError {
		t.Fatalf("expected query error verdict, got %s", eval.Verdict)
	}
	if !strings.HasPrefix(eval.Message, "SQL Error: ") {
		t.Errorf("message should carry the SQL Error prefix, got %q", eval.Message)
	}
	if strings.ContainsRune(eval.Message, '\n') {
		t.Errorf("player-facing error must be a single line, got %q", eval.Message)
	}
}

func TestEvaluateUnknownLevel(t *testing.T) {
	e := newTestEvaluator(t)

	_, err := e.Evaluate(context.Background(), 99, "SELECT 1;")
	if !errors.Is(err, ErrLevelNotFound) {
		t.Fatalf("expected ErrLevelNotFound, got %v", err)
	}
}

func TestEvaluateReferenceFailureIsInternal(t *testing.T) {
	cat := catalog.New()
	cat.Add(&models.Level{
		ID:    3,
		Title: "broken",
		Tables: []models.Table{
			{Name: "t", Columns: []string{"a"}, Rows: []map[string]any{{"a": 1}}},
		},
		ReferenceQuery: "SELECT missing_column FROM t;",
		UnlockCode:     "never",
	})

	e := NewEvaluator(cat, newTestProvisioner(t), 5*time.Second)

	eval, err := e.Evaluate(context.Background(), 3, "SELECT a FROM t;")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	// A defective reference query is our bug, never the player's.
	if eval.Verdict != models.VerdictInternalError {
		t.Fatalf("expected internal error verdict, got %s", eval.Verdict)
	}
	if eval.Message != "Execution error" {
		t.Errorf("unexpected message: %q", eval.Message)
	}
}

func TestEvaluateAdmittedWriteStaysSandboxed(t *testing.T) {
	e := newTestEvaluator(t)
	ctx := context.Background()

	// An INSERT..SELECT passes the heuristic filter and executes, but
	// only against that evaluation's throwaway copy.
	eval, err := e.Evaluate(ctx, 1, "INSERT INTO users SELECT 9, 'Eve', 'Gatekeeper', '9999';")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if eval.Verdict == models.VerdictRejected {
		t.Fatal("INSERT..SELECT should pass the heuristic filter")
	}

	eval, err = e.Evaluate(ctx, 1, "SELECT access_code FROM users WHERE role='Gatekeeper';")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if eval.Verdict != models.VerdictCorrect {
		t.Errorf("earlier evaluation leaked into a fresh sandbox, verdict = %s (%s)", eval.Verdict, eval.Message)
	}
}

func TestEvaluateConcurrent(t *testing.T) {
	e := newTestEvaluator(t)
	ctx := context.Background()

	const workers = 16

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			eval, err := e.Evaluate(ctx, 1, "SELECT access_code FROM users WHERE role='Gatekeeper';")
			if err != nil {
				errs <- err
				return
			}
			if eval.Verdict != models.VerdictCorrect {
				errs <- errors.New("concurrent evaluation returned " + string(eval.Verdict) + ": " + eval.Message)
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
