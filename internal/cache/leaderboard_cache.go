package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"redcodegreencode/internal/model"
)

const (
	leaderboardKey = "rcgc:leaderboard"
	leaderboardTTL = 30 * time.Second
)

// LeaderboardCache stores the most recently computed leaderboard
// snapshot so the REST leaderboard endpoint can serve it without
// re-reading every team record. The authoritative ordering is always
// recomputed by the game service; this is a read-side cache only.
type LeaderboardCache interface {
	SetSnapshot(ctx context.Context, teams []*model.Team) error
	GetSnapshot(ctx context.Context) ([]*model.Team, error)
}

type leaderboardCache struct {
	client *redis.Client
}

// NewLeaderboardCache creates a new leaderboard cache
func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{
		client: client,
	}
}

func (c *leaderboardCache) SetSnapshot(ctx context.Context, teams []*model.Team) error {
	data, err := json.Marshal(teams)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, leaderboardKey, data, leaderboardTTL).Err()
}

// GetSnapshot returns the cached snapshot, or (nil, nil) on a miss.
func (c *leaderboardCache) GetSnapshot(ctx context.Context) ([]*model.Team, error) {
	data, err := c.client.Get(ctx, leaderboardKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var teams []*model.Team
	if err := json.Unmarshal(data, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}
