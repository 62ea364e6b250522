package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReconnectPolicy_Delay(t *testing.T) {
	p := ReconnectPolicy{
		Enabled:           true,
		MaxAttempts:       10,
		InitialDelay:      time.Second,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2,
	}

	require.Equal(t, time.Second, p.Delay(0))
	require.Equal(t, time.Second, p.Delay(1))
	require.Equal(t, 2*time.Second, p.Delay(2))
	require.Equal(t, 8*time.Second, p.Delay(4))
	require.Equal(t, 10*time.Second, p.Delay(5))
	require.Equal(t, 10*time.Second, p.Delay(5000))
}

func TestReconnectPolicy_Validate(t *testing.T) {
	require.NoError(t, DefaultReconnectPolicy().Validate())
	require.NoError(t, ReconnectPolicy{}.Validate())

	bad := DefaultReconnectPolicy()
	bad.BackoffMultiplier = 0.5
	require.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = DefaultReconnectPolicy()
	bad.MaxDelay = time.Millisecond
	require.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}

func TestConfig_RejectsStereo(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dialer = NewMockDialer()
	cfg.Audio.Channels = 2
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestIsRetryable(t *testing.T) {
	require.False(t, IsRetryable(nil))
	require.True(t, IsRetryable(NewAPIError(503, "", "unavailable")))
	require.True(t, IsRetryable(NewAPIError(429, "", "slow down")))
	require.False(t, IsRetryable(NewAPIError(401, "", "unauthorized")))
	require.True(t, IsRetryable(NewConnectionError("read", nil, true)))
	require.False(t, IsRetryable(ErrManagerClosed))
	require.True(t, IsTerminal(ErrRetriesExhausted))
	require.False(t, IsTerminal(NewConnectionError("read", nil, true)))
}
