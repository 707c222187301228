package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/courtside-scheduler/pkg/config"
)

func TestOptions(t *testing.T) {
	opts := Options(config.RedisConfig{Host: "cache", Port: 6380, DB: 2, PoolSize: 20, DialTimeout: 2 * time.Second})
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 20, opts.PoolSize)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)
	assert.Equal(t, "courtside-scheduler", opts.ClientName)

	defaults := Options(config.RedisConfig{Host: "localhost", Port: 6379})
	assert.Equal(t, 5*time.Second, defaults.DialTimeout)
	assert.Zero(t, defaults.PoolSize)
}
