package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alea-labs/kl3mpipe/internal/broker/store"
)

func pushSample(t *testing.T, s store.ListStore, task, dataset string, record map[string]any) {
	t.Helper()
	blob, err := compressRecord(record)
	require.NoError(t, err)
	key := sampleKeyPrefix + task + ":" + dataset
	require.NoError(t, s.RPush(context.Background(), key, blob))
}

func TestGetSamplesUniformNoQueuesReturnsError(t *testing.T) {
	s := store.NewMemListStore()
	_, err := GetSamplesUniform(context.Background(), s, "mlm", 4, 1)
	require.ErrorIs(t, err, ErrNoQueuesAvailable)
}

func TestGetSamplesUniformReturnsExactBatchSize(t *testing.T) {
	s := store.NewMemListStore()
	for i := 0; i < 10; i++ {
		pushSample(t, s, "mlm", "ds1", map[string]any{"identifier": "a"})
	}
	for i := 0; i < 10; i++ {
		pushSample(t, s, "mlm", "ds2", map[string]any{"identifier": "b"})
	}

	samples, err := GetSamplesUniform(context.Background(), s, "mlm", 6, 2)
	require.NoError(t, err)
	require.Len(t, samples, 6)
}

func TestGetSamplesUniformStopsWhenQueuesExhausted(t *testing.T) {
	s := store.NewMemListStore()
	pushSample(t, s, "mlm", "ds1", map[string]any{"identifier": "only-one"})

	samples, err := GetSamplesUniform(context.Background(), s, "mlm", 10, 1)
	require.NoError(t, err)
	require.Len(t, samples, 1)
}

func TestGetSamplesWeightedFiltersByDataset(t *testing.T) {
	s := store.NewMemListStore()
	for i := 0; i < 5; i++ {
		pushSample(t, s, "clm", "ds1", map[string]any{"identifier": "a"})
		pushSample(t, s, "clm", "ds2", map[string]any{"identifier": "b"})
		pushSample(t, s, "clm", "ds3", map[string]any{"identifier": "c"})
	}

	samples, err := GetSamplesWeighted(context.Background(), s, "clm", 4, map[string]float64{"ds1": 1.0})
	require.NoError(t, err)
	require.Len(t, samples, 4)
	for _, record := range samples {
		require.Equal(t, "a", record["identifier"])
	}
}

func TestGetSamplesWeightedNoMatchingDatasetsReturnsError(t *testing.T) {
	s := store.NewMemListStore()
	pushSample(t, s, "clm", "ds1", map[string]any{"identifier": "a"})

	_, err := GetSamplesWeighted(context.Background(), s, "clm", 1, map[string]float64{"ds-unknown": 1.0})
	require.ErrorIs(t, err, ErrNoQueuesAvailable)
}
