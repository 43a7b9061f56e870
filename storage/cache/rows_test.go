package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core/record"
	"github.com/trezcool/masomo/services/logger"
)

type fakeClient struct {
	data   map[string]string
	getErr error
	ttls   map[string]time.Duration
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (c *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	if c.getErr != nil {
		return redis.NewStringResult("", c.getErr)
	}
	val, ok := c.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (c *fakeClient) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	c.data[key] = string(value.([]byte))
	c.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (c *fakeClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := c.data[k]; ok {
			delete(c.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type countingSource struct {
	rows  map[string][]record.Row
	calls int
}

func (s *countingSource) Rows(_ context.Context, recordID string) ([]record.Row, error) {
	s.calls++
	rows, ok := s.rows[recordID]
	if !ok {
		return nil, record.ErrRecordNotFound
	}
	return rows, nil
}

func (s *countingSource) ReplaceRows(_ context.Context, recordID string, rows []record.Row) error {
	s.rows[recordID] = rows
	return nil
}

func TestRowSource(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	source := &countingSource{rows: map[string][]record.Row{
		"r1": {{"boys": 12.0, "girls": 8.0}},
	}}
	rs := &RowSource{client: client, source: source, ttl: time.Minute, logger: logsvc.NewRollbarLoggerMock()}

	want := []record.Row{{"boys": 12.0, "girls": 8.0}}

	t.Run("miss then hit", func(t *testing.T) {
		got, err := rs.Rows(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, 1, source.calls)
		assert.Equal(t, time.Minute, client.ttls[key("r1")])

		got, err = rs.Rows(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, 1, source.calls, "served from cache")
	})

	t.Run("invalidate", func(t *testing.T) {
		require.NoError(t, rs.Invalidate(ctx, "r1", "r2"))
		assert.NotContains(t, client.data, key("r1"))

		_, err := rs.Rows(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, 2, source.calls)
	})

	t.Run("replace drops cached copy", func(t *testing.T) {
		newRows := []record.Row{{"boys": 1.0}}
		require.NoError(t, rs.ReplaceRows(ctx, "r1", newRows))
		got, err := rs.Rows(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, newRows, got)
	})

	t.Run("corrupt entry falls back to source", func(t *testing.T) {
		client.data[key("r1")] = "{lol"
		calls := source.calls
		_, err := rs.Rows(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, calls+1, source.calls)
	})

	t.Run("redis down falls back to source", func(t *testing.T) {
		client.getErr = errors.New("connection refused")
		defer func() { client.getErr = nil }()
		calls := source.calls
		got, err := rs.Rows(ctx, "r1")
		require.NoError(t, err)
		assert.NotEmpty(t, got)
		assert.Equal(t, calls+1, source.calls)
	})

	t.Run("source errors are returned", func(t *testing.T) {
		_, err := rs.Rows(ctx, "lol")
		assert.Equal(t, record.ErrRecordNotFound, err)
	})
}
