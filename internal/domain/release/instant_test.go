package release

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveInstant(t *testing.T) {
	at, err := ResolveInstant("2026-03-01T09:30", "Europe/Paris")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC), at)

	at, err = ResolveInstant("2026-03-01 09:30", "")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC), at)

	at, err = ResolveInstant("2026-03-01T09:30:00-05:00", "Europe/Paris")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC), at)
}

func TestResolveInstantRejectsBadInput(t *testing.T) {
	_, err := ResolveInstant("tomorrow", "")
	require.True(t, IsValidation(err))

	_, err = ResolveInstant("2026-03-01T09:30", "Mars/Olympus")
	require.True(t, IsValidation(err))
}
