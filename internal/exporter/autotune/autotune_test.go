package autotune

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectRespectsHardCaps(t *testing.T) {
	settings := Detect(Caps{MaxFetchers: 2, MaxQueueDepth: 100})
	require.LessOrEqual(t, settings.Fetchers, 2)
	require.LessOrEqual(t, settings.QueueDepth, 100)
}

func TestDetectWithoutCapsReturnsPositiveValues(t *testing.T) {
	settings := Detect(Caps{})
	require.Greater(t, settings.Fetchers, 0)
	require.Greater(t, settings.QueueDepth, 0)
	require.Greater(t, settings.CPUCount, 0)
}
