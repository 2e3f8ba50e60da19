package scores

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/terra-clan/sql-escape-room/internal/models"
)

// ErrNoHistory is returned when no registered sink can list raw scores
var ErrNoHistory = errors.New("no score history available")

// Service fans submitted scores out to every registered sink. The game
// must never lose a player's result over a flaky store: failed writes are
// logged, queued, and retried by the flush worker, and the caller is
// always told the submission succeeded.
type Service struct {
	registry      *Registry
	flushInterval time.Duration

	mu       sync.Mutex
	pending  []pendingWrite
	queueCap int
}

type pendingWrite struct {
	sinkType string
	score    *models.Score
}

// NewService creates a score service over a sink registry
func NewService(registry *Registry, flushInterval time.Duration, queueCap int) *Service {
	if flushInterval <= 0 {
		flushInterval = 1 * time.Minute
	}
	if queueCap <= 0 {
		queueCap = 1024
	}

	return &Service{
		registry:      registry,
		flushInterval: flushInterval,
		queueCap:      queueCap,
	}
}

// Submit records a score in every sink. It never fails from the caller's
// perspective; the returned message states where the score ended up.
func (s *Service) Submit(ctx context.Context, score *models.Score) string {
	if score.CreatedAt.IsZero() {
		score.CreatedAt = time.Now().UTC()
	}

	sinks := s.registry.List()
	if len(sinks) == 0 {
		slog.Info("score logged locally (no sinks registered)",
			"player", score.PlayerName,
			"roll_no", score.RollNo,
			"score", score.Score,
			"time", score.TimeTaken,
		)
		return "Score logged locally"
	}

	saved := 0
	for _, sink := range sinks {
		if err := sink.Record(ctx, score); err != nil {
			slog.Warn("score sink write failed, queued for retry",
				"sink", sink.Type(),
				"player", score.PlayerName,
				"error", err,
			)
			s.enqueue(pendingWrite{sinkType: sink.Type(), score: score})
			continue
		}
		saved++
	}

	if saved == 0 {
		return "Score logged locally"
	}
	return "Score saved to database"
}

// Top returns the leaderboard from the first sink that can serve one
func (s *Service) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	var lastErr error

	for _, sink := range s.registry.List() {
		lb, ok := sink.(Leaderboard)
		if !ok {
			continue
		}

		entries, err := lb.Top(ctx, limit)
		if err != nil {
			slog.Warn("leaderboard read failed", "sink", sink.Type(), "error", err)
			lastErr = err
			continue
		}
		return entries, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return []models.LeaderboardEntry{}, nil
}

// Recent returns raw score rows from the first sink with history support
func (s *Service) Recent(ctx context.Context, limit int) ([]models.Score, error) {
	for _, sink := range s.registry.List() {
		if h, ok := sink.(History); ok {
			return h.Recent(ctx, limit)
		}
	}
	return nil, ErrNoHistory
}

// HealthCheck checks every registered sink
func (s *Service) HealthCheck(ctx context.Context) map[string]error {
	return s.registry.HealthCheckAll(ctx)
}

// enqueue adds a failed write to the bounded retry queue, dropping the
// oldest entry when full.
func (s *Service) enqueue(w pendingWrite) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) >= s.queueCap {
		dropped := s.pending[0]
		s.pending = s.pending[1:]
		slog.Warn("retry queue full, dropping oldest score",
			"sink", dropped.sinkType,
			"player", dropped.score.PlayerName,
		)
	}
	s.pending = append(s.pending, w)
}

// Start begins the flush worker in a goroutine
func (s *Service) Start(ctx context.Context) {
	go s.run(ctx)
}

// run is the main loop for the flush worker
func (s *Service) run(ctx context.Context) {
	slog.Info("score flush worker started", "interval", s.flushInterval)

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("score flush worker stopped")
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

// Flush retries every queued write once; writes that fail again are
// re-queued.
func (s *Service) Flush(ctx context.Context) {
	s.mu.Lock()
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(queued) == 0 {
		return
	}

	slog.Info("retrying queued score writes", "count", len(queued))

	for _, w := range queued {
		sink := s.registry.Get(w.sinkType)
		if sink == nil {
			continue
		}

		if err := sink.Record(ctx, w.score); err != nil {
			slog.Warn("score retry failed", "sink", w.sinkType, "player", w.score.PlayerName, "error", err)
			s.enqueue(w)
			continue
		}

		slog.Info("queued score flushed", "sink", w.sinkType, "player", w.score.PlayerName)
	}
}
