package scores

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/sql-escape-room/internal/models"
)

// leaderboardKey is the sorted set holding each player's best score
const leaderboardKey = "escape:leaderboard"

// RedisSink maintains the live leaderboard in a Redis sorted set
type RedisSink struct {
	client *redis.Client
}

// NewRedisSink connects to Redis and verifies connectivity
func NewRedisSink(address, password string, db int) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisSink{client: client}, nil
}

// Record updates the player's leaderboard entry, keeping their best score
func (s *RedisSink) Record(ctx context.Context, score *models.Score) error {
	err := s.client.ZAddGT(ctx, leaderboardKey, redis.Z{
		Score:  float64(score.Score),
		Member: score.PlayerName,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to update leaderboard: %w", err)
	}

	slog.Debug("leaderboard updated", "player", score.PlayerName, "score", score.Score)
	return nil
}

// Top returns the ranked top scores
func (s *RedisSink) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	results, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(results))
	for i, z := range results {
		name, _ := z.Member.(string)
		entries = append(entries, models.LeaderboardEntry{
			Rank:       i + 1,
			PlayerName: name,
			Score:      int(z.Score),
		})
	}

	return entries, nil
}

// Type returns the sink type name
func (s *RedisSink) Type() string {
	return "redis"
}

// HealthCheck verifies Redis connectivity
func (s *RedisSink) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisSink) Close() error {
	return s.client.Close()
}
