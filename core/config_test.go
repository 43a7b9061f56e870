package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("TEST_STORAGE", " Postgres ")
	t.Setenv("TEST_REDISADDR", "localhost:6379")
	t.Setenv("TEST_REDISTTL", "30s")
	t.Setenv("TEST_DATABASEPORT", "5433")
	t.Setenv("TEST_SEEDSAMPLE", "false")

	conf := NewConfig()
	assert.Equal(t, "TEST", conf.Env)
	assert.True(t, conf.TestMode)
	assert.Equal(t, StoragePostgres, conf.Storage)
	assert.False(t, conf.SeedSample)
	assert.Equal(t, "localhost:6379", conf.Redis.Addr)
	assert.Equal(t, 30*time.Second, conf.Redis.TTL)
	assert.Equal(t, "localhost:5433", conf.Database.Address())
	assert.Equal(t, "records", conf.AMQP.Exchange)
}
