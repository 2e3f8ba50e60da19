package scores

import (
	"context"
	"sync"

	"github.com/terra-clan/sql-escape-room/internal/models"
)

// Sink persists submitted scores to one backing store
type Sink interface {
	// Record writes a single score
	Record(ctx context.Context, score *models.Score) error

	// Type returns the sink type name
	Type() string

	// HealthCheck checks if the store is available
	HealthCheck(ctx context.Context) error
}

// Leaderboard is implemented by sinks that can serve ranked top scores
type Leaderboard interface {
	Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// History is implemented by sinks that can list raw score rows
type History interface {
	Recent(ctx context.Context, limit int) ([]models.Score, error)
}

// Registry manages score sinks
type Registry struct {
	mu    sync.RWMutex
	sinks map[string]Sink
	order []string
}

// NewRegistry creates a new sink registry
func NewRegistry() *Registry {
	return &Registry{
		sinks: make(map[string]Sink),
	}
}

// Register adds a sink to the registry. Registration order is preserved
// and used as lookup preference for leaderboard/history reads.
func (r *Registry) Register(name string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sinks[name]; !exists {
		r.order = append(r.order, name)
	}
	r.sinks[name] = sink
}

// Get retrieves a sink by name
func (r *Registry) Get(name string) Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sinks[name]
}

// List returns all registered sinks in registration order
func (r *Registry) List() []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]Sink, 0, len(r.order))
	for _, name := range r.order {
		sinks = append(sinks, r.sinks[name])
	}
	return sinks
}

// HealthCheckAll checks health of all registered sinks
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]error {
	results := make(map[string]error)
	for _, sink := range r.List() {
		results[sink.Type()] = sink.HealthCheck(ctx)
	}
	return results
}
