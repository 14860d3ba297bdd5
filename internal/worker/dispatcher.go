package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/Priya8975/notification-hub/internal/engine"
	"github.com/redis/go-redis/v9"
)

// Dispatcher polls the delivery queue for ready jobs and feeds the pool.
type Dispatcher struct {
	redisClient  *redis.Client
	pool         *Pool
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int64
}

func NewDispatcher(redisClient *redis.Client, pool *Pool, pollInterval time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		redisClient:  redisClient,
		pool:         pool,
		logger:       logger,
		pollInterval: pollInterval,
		batchSize:    10,
	}
}

// Start runs the polling loop until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("dispatcher started", "poll_interval", d.pollInterval)

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

// poll claims up to batchSize ready jobs and returns how many were
// submitted to the pool.
func (d *Dispatcher) poll(ctx context.Context) int {
	now := strconv.FormatInt(time.Now().UnixMicro(), 10)

	results, err := d.redisClient.ZRangeByScoreWithScores(ctx, engine.DeliveryQueueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: d.batchSize,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Error("failed to poll delivery queue", "error", err)
		}
		return 0
	}

	submitted := 0
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}

		// ZREM is the claim: 0 means another dispatcher got there first.
		removed, err := d.redisClient.ZRem(ctx, engine.DeliveryQueueKey, member).Result()
		if err != nil {
			d.logger.Error("failed to remove job from queue", "error", err)
			continue
		}
		if removed == 0 {
			continue
		}

		var job engine.DeliveryJob
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			d.logger.Error("dropping undecodable job", "error", err)
			continue
		}

		if !d.pool.Submit(ctx, job) {
			d.putBack(member, z.Score)
			continue
		}
		submitted++
	}

	return submitted
}

// putBack returns a claimed job that could not be handed to a worker
// before shutdown.
func (d *Dispatcher) putBack(member string, score float64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.redisClient.ZAdd(ctx, engine.DeliveryQueueKey, redis.Z{Score: score, Member: member}).Err(); err != nil {
		d.logger.Error("failed to return job to queue", "error", err)
	}
}
