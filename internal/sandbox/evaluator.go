package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/terra-clan/sql-escape-room/internal/admission"
	"github.com/terra-clan/sql-escape-room/internal/catalog"
	"github.com/terra-clan/sql-escape-room/internal/models"
)

// ErrLevelNotFound is returned when the requested level id does not exist
var ErrLevelNotFound = errors.New("level not found")

// Evaluator orchestrates one submission check: admit, provision, execute
// the submitted query, execute the reference query, compare, tear down.
type Evaluator struct {
	catalog      *catalog.Catalog
	provisioner  *Provisioner
	queryTimeout time.Duration
}

// NewEvaluator creates an evaluator bound to a catalog and a provisioner
func NewEvaluator(cat *catalog.Catalog, prov *Provisioner, queryTimeout time.Duration) *Evaluator {
	return &Evaluator{
		catalog:      cat,
		provisioner:  prov,
		queryTimeout: queryTimeout,
	}
}

// Evaluate checks a submitted query against the level's reference query.
// Every engine-level failure is classified here; nothing escapes as an
// unclassified error except ErrLevelNotFound, which the caller maps to a
// not-found response. The sandbox is torn down on every exit path.
func (e *Evaluator) Evaluate(ctx context.Context, levelID int, submitted string) (*models.Evaluation, error) {
	level, ok := e.catalog.Get(levelID)
	if !ok {
		return nil, ErrLevelNotFound
	}

	// Cheap short-circuit: no sandbox is created for a rejected query.
	if decision := admission.Admit(submitted); !decision.Allowed {
		return &models.Evaluation{
			Verdict: models.VerdictRejected,
			Message: decision.Reason,
		}, nil
	}

	handle, err := e.provisioner.Provision(ctx, level)
	if err != nil {
		// Provisioning failures signal a catalog defect, not a user error.
		slog.Error("sandbox provisioning failed", "level_id", levelID, "error", err)
		return internalError(), nil
	}
	defer e.provisioner.Teardown(handle)

	submittedResult, err := e.run(ctx, handle, submitted)
	if err != nil {
		// Only the first line of the engine error reaches the player.
		return &models.Evaluation{
			Verdict: models.VerdictQueryError,
			Message: "SQL Error: " + firstLine(err.Error()),
		}, nil
	}

	referenceResult, err := e.run(ctx, handle, level.ReferenceQuery)
	if err != nil {
		// The reference query is trusted; a failure here is never
		// attributed to the player.
		slog.Error("reference query failed", "level_id", levelID, "sandbox_id", handle.ID(), "error", err)
		return internalError(), nil
	}

	if !Equivalent(submittedResult, referenceResult) {
		return &models.Evaluation{
			Verdict: models.VerdictMismatch,
			Message: "Result mismatch",
		}, nil
	}

	return &models.Evaluation{
		Verdict:    models.VerdictCorrect,
		UnlockCode: level.UnlockCode,
	}, nil
}

// run executes one query under the configured execution-time budget
func (e *Evaluator) run(ctx context.Context, h *Handle, queryText string) (*ResultSet, error) {
	queryCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	return h.Query(queryCtx, queryText)
}

func internalError() *models.Evaluation {
	return &models.Evaluation{
		Verdict: models.VerdictInternalError,
		Message: "Execution error",
	}
}

// firstLine truncates multi-line engine errors so stack traces and
// engine internals never leak to the caller.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
