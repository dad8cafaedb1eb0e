package lake

import (
	"context"
	"fmt"
	"time"

	"github.com/nbiscaro/pg-mooncake/gologger"
	"github.com/nbiscaro/pg-mooncake/utils"

	"github.com/go-redis/redis/v8"
)

// RedisLake is the production Service, storing each file's chunk bitmaps as
// fields of one hash keyed by (oid, file_name), following the teacher's
// RedisMetaStore CreatePart pipeline pattern (hash-of-fields per entity).
type RedisLake struct {
	client *redis.Client
}

var logger = gologger.NewLogger()

func NewRedisLake(ctx context.Context) (*RedisLake, error) {
	logger.Debug().Msg("connecting to redis lake service")
	rl := &RedisLake{
		client: redis.NewClient(&redis.Options{
			Addr:        utils.REDIS_ADDR,
			Password:    utils.REDIS_PASSWORD,
			DB:          0,
			DialTimeout: time.Second * 3,
		}),
	}

	if _, err := rl.client.Ping(ctx).Result(); err != nil {
		rl.client.Close()
		return nil, fmt.Errorf("error pinging redis: %w", err)
	}
	return rl, nil
}

func (rl *RedisLake) filesKey(ref FileRef) string {
	return fmt.Sprintf("mooncake_files_%d", ref.OID)
}

func (rl *RedisLake) dvKey(ref FileRef) string {
	return fmt.Sprintf("mooncake_dv_%d_%s", ref.OID, ref.FileName)
}

func (rl *RedisLake) chunkField(chunkIndex int64) string {
	return fmt.Sprintf("chunk_%d", chunkIndex)
}

func (rl *RedisLake) AddFile(ctx context.Context, ref FileRef, fileSize int64) error {
	_, err := rl.client.HSet(ctx, rl.filesKey(ref), ref.FileName, fileSize).Result()
	if err != nil {
		return fmt.Errorf("error in redis HSET: %w", err)
	}
	return nil
}

// FetchDV serves the latest bitmap for the chunk. A DV hash field is only
// ever grown by OR-merge under the host's per-table DML serialization, so
// the latest write is also the snapshot-consistent one for any snapshot a
// live transaction can hold.
func (rl *RedisLake) FetchDV(ctx context.Context, ref FileRef, chunkIndex int64, _ Snapshot) ([]byte, error) {
	data, err := rl.client.HGet(ctx, rl.dvKey(ref), rl.chunkField(chunkIndex)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error in redis HGET: %w", err)
	}
	return data, nil
}

func (rl *RedisLake) WriteDV(ctx context.Context, ref FileRef, chunkIndex int64, data []byte) error {
	_, err := rl.client.HSet(ctx, rl.dvKey(ref), rl.chunkField(chunkIndex), data).Result()
	if err != nil {
		return fmt.Errorf("error in redis HSET: %w", err)
	}
	return nil
}

// Commit is a no-op for RedisLake: WriteDV calls are already visible as
// soon as they land, since roaming readers only ever need the latest bitmap
// for a chunk rather than a batch-consistent view across chunks.
func (rl *RedisLake) Commit(_ context.Context, batchID string) error {
	logger.Debug().Str("batchID", batchID).Msg("lake: committing DV batch")
	return nil
}

func (rl *RedisLake) Shutdown(_ context.Context) error {
	if err := rl.client.Close(); err != nil {
		return fmt.Errorf("error closing redis client: %w", err)
	}
	return nil
}
