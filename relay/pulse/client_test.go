package pulse

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresRedis(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestNewDefaultsOperationTimeout(t *testing.T) {
	c, err := New(Options{Redis: redis.NewClient(&redis.Options{})})
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, c.(*client).timeout)
}

func TestNewHonorsExplicitOperationTimeout(t *testing.T) {
	c, err := New(Options{
		Redis:            redis.NewClient(&redis.Options{}),
		OperationTimeout: time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, time.Second, c.(*client).timeout)
}
