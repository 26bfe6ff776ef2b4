package ebloom

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// redisBackend is the remote-KV Backend variant (spec §4.5, §9
// "variants: in-memory, embedded-kv"; grounded on the original
// implementation's separate redis_storage.rs backend). It stores the same
// logical records as sqliteBackend, keyed under prefix:<kind>[:level:chunk],
// so multiple filters can safely share one Redis instance. This backend is
// for sharing one logical store, not for replication (spec Non-goals).
type redisBackend struct {
	client *redis.Client
	prefix string
}

func redisKeysExist(addr, prefix string) (bool, error) {
	if addr == "" {
		return false, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	n, err := client.Exists(ctx, redisConfigKey(prefix)).Result()
	if err != nil {
		return false, wrapStorageErr("redis exists", err)
	}
	return n > 0, nil
}

func openRedisBackendFresh(addr, prefix string) (Backend, error) {
	if addr == "" {
		return nil, fmt.Errorf("%w: persistence.redis_addr is empty", ErrInvalidConfig)
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, wrapStorageErr("redis ping", err)
	}

	b := &redisBackend{client: client, prefix: prefix}
	if err := b.wipeAll(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return b, nil
}

func openRedisBackendForLoad(addr, prefix string) (Backend, error) {
	exists, err := redisKeysExist(addr, prefix)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: no ebloom state under prefix %q at %s", ErrStorageError, prefix, addr)
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &redisBackend{client: client, prefix: prefix}, nil
}

func (r *redisBackend) wipeAll(ctx context.Context) error {
	pattern := r.prefix + ":*"
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return wrapStorageErr("redis scan", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return wrapStorageErr("redis del", err)
	}
	return nil
}

func redisConfigKey(prefix string) string      { return fmt.Sprintf("%s:config", prefix) }
func redisActiveIdxKey(prefix string) string   { return fmt.Sprintf("%s:active_index", prefix) }
func redisMetadataKey(prefix string) string    { return fmt.Sprintf("%s:metadata", prefix) }
func redisChunkKey(prefix string, levelID, chunkID int) string {
	return fmt.Sprintf("%s:chunks:%d:%d", prefix, levelID, chunkID)
}
func redisDirtyChunkKey(prefix string, levelID, chunkID int) string {
	return fmt.Sprintf("%s:dirty:%d:%d", prefix, levelID, chunkID)
}
func redisChunkPattern(prefix string, levelID int) string {
	return fmt.Sprintf("%s:chunks:%d:*", prefix, levelID)
}
func redisDirtyChunkPattern(prefix string, levelID int) string {
	return fmt.Sprintf("%s:dirty:%d:*", prefix, levelID)
}

func (r *redisBackend) SaveConfig(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, redisConfigKey(r.prefix), data, 0).Err(); err != nil {
		return wrapStorageErr("redis set config", err)
	}
	return nil
}

func (r *redisBackend) LoadConfig(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, redisConfigKey(r.prefix)).Bytes()
	if err == redis.Nil {
		return nil, wrapStorageErr("load_config", errNoRecord)
	}
	if err != nil {
		return nil, wrapStorageErr("redis get config", err)
	}
	return data, nil
}

func (r *redisBackend) SaveActiveIndex(ctx context.Context, i int) error {
	if err := r.client.Set(ctx, redisActiveIdxKey(r.prefix), strconv.Itoa(i), 0).Err(); err != nil {
		return wrapStorageErr("redis set active_index", err)
	}
	return nil
}

func (r *redisBackend) LoadActiveIndex(ctx context.Context) (int, error) {
	s, err := r.client.Get(ctx, redisActiveIdxKey(r.prefix)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, wrapStorageErr("redis get active_index", err)
	}
	i, convErr := strconv.Atoi(s)
	if convErr != nil {
		return 0, fmt.Errorf("%w: active_index %q: %w", ErrSerializationError, s, convErr)
	}
	return i, nil
}

func (r *redisBackend) SaveMetadata(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, redisMetadataKey(r.prefix), data, 0).Err(); err != nil {
		return wrapStorageErr("redis set metadata", err)
	}
	return nil
}

func (r *redisBackend) LoadMetadata(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, redisMetadataKey(r.prefix)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorageErr("redis get metadata", err)
	}
	return data, nil
}

func (r *redisBackend) SaveLevelFull(ctx context.Context, levelID int, chunks []chunkRecord) error {
	return r.saveChunks(ctx, levelID, chunks, redisChunkKey)
}

func (r *redisBackend) SaveLevelDirty(ctx context.Context, levelID int, chunks []chunkRecord) error {
	return r.saveChunks(ctx, levelID, chunks, redisDirtyChunkKey)
}

func (r *redisBackend) saveChunks(ctx context.Context, levelID int, chunks []chunkRecord, keyFn func(string, int, int) string) error {
	if len(chunks) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, c := range chunks {
		pipe.Set(ctx, keyFn(r.prefix, levelID, c.ChunkID), c.Data, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapStorageErr("redis pipeline set chunks", err)
	}
	return nil
}

func (r *redisBackend) LoadLevelChunks(ctx context.Context, levelID int) ([]chunkRecord, error) {
	return r.loadChunks(ctx, levelID, redisChunkPattern(r.prefix, levelID))
}

func (r *redisBackend) LoadLevelDirty(ctx context.Context, levelID int) ([]chunkRecord, error) {
	return r.loadChunks(ctx, levelID, redisDirtyChunkPattern(r.prefix, levelID))
}

func (r *redisBackend) loadChunks(ctx context.Context, _ int, pattern string) ([]chunkRecord, error) {
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, wrapStorageErr("redis scan chunks", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	out := make([]chunkRecord, 0, len(keys))
	for _, key := range keys {
		data, err := r.client.Get(ctx, key).Bytes()
		if err != nil {
			return nil, wrapStorageErr("redis get chunk", err)
		}
		id, convErr := chunkIDFromKey(key)
		if convErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerializationError, convErr)
		}
		out = append(out, chunkRecord{ChunkID: id, Data: data})
	}
	sortChunkRecords(out)
	return out, nil
}

func chunkIDFromKey(key string) (int, error) {
	parts := strings.Split(key, ":")
	last := parts[len(parts)-1]
	id, err := strconv.Atoi(last)
	if err != nil {
		return 0, fmt.Errorf("malformed chunk key %q", key)
	}
	return id, nil
}

func sortChunkRecords(recs []chunkRecord) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].ChunkID < recs[j].ChunkID })
}

func (r *redisBackend) DeleteLevel(ctx context.Context, levelID int) error {
	if err := r.deletePattern(ctx, redisChunkPattern(r.prefix, levelID)); err != nil {
		return err
	}
	return r.deletePattern(ctx, redisDirtyChunkPattern(r.prefix, levelID))
}

func (r *redisBackend) deletePattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return wrapStorageErr("redis scan for delete", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return wrapStorageErr("redis del", err)
	}
	return nil
}

func (r *redisBackend) DeleteLevelDirty(ctx context.Context, levelID int) error {
	return r.deletePattern(ctx, redisDirtyChunkPattern(r.prefix, levelID))
}

func (r *redisBackend) Close() error {
	if err := r.client.Close(); err != nil && err != redis.ErrClosed {
		return err
	}
	return nil
}
