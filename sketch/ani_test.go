package sketch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestANIFromContainmentClampsToUnitRange(t *testing.T) {
	require.Equal(t, 0.0, ANIFromContainment(0, 21))
	require.Equal(t, 0.0, ANIFromContainment(-1, 21))
	require.InDelta(t, 1.0, ANIFromContainment(1, 21), 1e-9)
}

func TestANIFromContainmentIncreasesWithContainment(t *testing.T) {
	low := ANIFromContainment(0.1, 21)
	high := ANIFromContainment(0.9, 21)
	require.Less(t, low, high)
}

func TestIntersectBP(t *testing.T) {
	require.Equal(t, uint64(5000), IntersectBP(5, 1000))
	require.Equal(t, uint64(0), IntersectBP(0, 1000))
}

func TestThresholdHashesFloorsAtOne(t *testing.T) {
	require.Equal(t, uint64(1), ThresholdHashes(500, 1000))
	require.Equal(t, uint64(50), ThresholdHashes(50000, 1000))
	require.Equal(t, uint64(50000), ThresholdHashes(50000, 0))
}
