package jobs

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"referral-service/internal/services"
)

// LeaderboardSnapshotKey is the Redis key holding the cached first page
// of the global ranking
const LeaderboardSnapshotKey = "leaderboard:snapshot"

type LeaderboardSnapshotJob struct {
	service  *services.LeaderboardService
	rdb      *redis.Client
	pageSize int
}

func NewLeaderboardSnapshotJob(service *services.LeaderboardService, rdb *redis.Client, pageSize int) *LeaderboardSnapshotJob {
	return &LeaderboardSnapshotJob{
		service:  service,
		rdb:      rdb,
		pageSize: pageSize,
	}
}

// Start begins the periodic snapshot job
func (j *LeaderboardSnapshotJob) Start(interval time.Duration) {
	go func() {
		// Run immediately on start
		ctx := context.Background()
		if err := j.refresh(ctx, interval); err != nil {
			log.Printf("Initial leaderboard snapshot error: %v", err)
		}

		// Then run periodically
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			if err := j.refresh(ctx, interval); err != nil {
				log.Printf("Leaderboard snapshot error: %v", err)
			}
		}
	}()
}

// refresh recomputes the first ranking page and caches it. The TTL is
// twice the interval so a single failed run never serves stale data for
// long, and a dead job expires the key entirely.
func (j *LeaderboardSnapshotJob) refresh(ctx context.Context, interval time.Duration) error {
	entries, err := j.service.ComputeGlobalRanking(ctx, 1, j.pageSize)
	if err != nil {
		return err
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	return j.rdb.Set(ctx, LeaderboardSnapshotKey, data, 2*interval).Err()
}
