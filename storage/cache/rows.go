package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/record"
)

const keyPrefix = "records:rows:"

// client is the subset of *redis.Client used by the cache.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RowSource caches the rows of another record.RowSource in Redis.
// Cache failures are logged and the wrapped source is read instead.
type RowSource struct {
	client client
	source record.RowSource
	ttl    time.Duration
	logger core.Logger
}

var (
	_ record.RowSource      = (*RowSource)(nil)
	_ record.RowWriter      = (*RowSource)(nil)
	_ record.RowInvalidator = (*RowSource)(nil)
)

func NewClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func NewRowSource(rdb *redis.Client, source record.RowSource, conf *core.Config, logger core.Logger) *RowSource {
	return &RowSource{client: rdb, source: source, ttl: conf.Redis.TTL, logger: logger}
}

func key(recordID string) string {
	return keyPrefix + recordID
}

func (rs *RowSource) Rows(ctx context.Context, recordID string) ([]record.Row, error) {
	data, err := rs.client.Get(ctx, key(recordID)).Bytes()
	switch {
	case err == nil:
		var rows []record.Row
		if err = json.Unmarshal(data, &rows); err == nil {
			return rows, nil
		}
		rs.logger.Warn("decoding cached rows", errors.Wrap(err, "unmarshalling rows"), map[string]interface{}{"record_id": recordID})
	case err != redis.Nil:
		rs.logger.Warn("reading cached rows", errors.Wrap(err, "getting rows"), map[string]interface{}{"record_id": recordID})
	}

	rows, err := rs.source.Rows(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if data, err = json.Marshal(rows); err != nil {
		return nil, errors.Wrap(err, "marshalling rows")
	}
	if err = rs.client.Set(ctx, key(recordID), data, rs.ttl).Err(); err != nil {
		rs.logger.Warn("caching rows", errors.Wrap(err, "setting rows"), map[string]interface{}{"record_id": recordID})
	}
	return rows, nil
}

// Invalidate drops the cached rows of the given records.
func (rs *RowSource) Invalidate(ctx context.Context, recordIDs ...string) error {
	if len(recordIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(recordIDs))
	for _, id := range recordIDs {
		keys = append(keys, key(id))
	}
	if err := rs.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "deleting cached rows")
	}
	return nil
}

// ReplaceRows forwards to the wrapped source, when it can write, and drops the cached copy.
func (rs *RowSource) ReplaceRows(ctx context.Context, recordID string, rows []record.Row) error {
	w, ok := rs.source.(record.RowWriter)
	if !ok {
		return errors.New("row source is read-only")
	}
	if err := w.ReplaceRows(ctx, recordID, rows); err != nil {
		return err
	}
	return rs.Invalidate(ctx, recordID)
}
