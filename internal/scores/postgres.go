package scores

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/sql-escape-room/internal/models"
)

// PostgresSink persists scores to the player_scores table
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to PostgreSQL and verifies connectivity
func NewPostgresSink(ctx context.Context, dsn string, maxConns int) (*PostgresSink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresSink{pool: pool}, nil
}

// Record writes one score row
func (s *PostgresSink) Record(ctx context.Context, score *models.Score) error {
	query := `
		INSERT INTO player_scores (player_name, roll_number, score, time_taken, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		score.PlayerName,
		score.RollNo,
		score.Score,
		score.TimeTaken,
		score.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert score: %w", err)
	}

	slog.Info("score saved",
		"player", score.PlayerName,
		"roll_no", score.RollNo,
		"score", score.Score,
		"time", score.TimeTaken,
	)

	return nil
}

// Top returns the ranked best score per player
func (s *PostgresSink) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	query := `
		SELECT player_name, MAX(score) AS best
		FROM player_scores
		GROUP BY player_name
		ORDER BY best DESC, player_name ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		if err := rows.Scan(&entry.PlayerName, &entry.Score); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entry.Rank = len(entries) + 1
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Recent returns the latest raw score rows
func (s *PostgresSink) Recent(ctx context.Context, limit int) ([]models.Score, error) {
	query := `
		SELECT player_name, roll_number, score, time_taken, created_at
		FROM player_scores
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	var scores []models.Score
	for rows.Next() {
		var score models.Score
		if err := rows.Scan(&score.PlayerName, &score.RollNo, &score.Score, &score.TimeTaken, &score.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score row: %w", err)
		}
		scores = append(scores, score)
	}

	return scores, rows.Err()
}

// Type returns the sink type name
func (s *PostgresSink) Type() string {
	return "postgres"
}

// HealthCheck verifies PostgreSQL connectivity
func (s *PostgresSink) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool
func (s *PostgresSink) Close() {
	s.pool.Close()
}
