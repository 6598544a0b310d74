package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/alea-labs/kl3mpipe/internal/broker/store"
)

func newTestServer() (*Server, *store.MemListStore) {
	s := store.NewMemListStore()
	return NewServer(s, arbor.NewLogger()), s
}

func TestBatchHandlerReturnsBatchSizeRecords(t *testing.T) {
	srv, s := newTestServer()
	for i := 0; i < 8; i++ {
		pushSample(t, s, "mlm", "ds1", map[string]any{"identifier": "x"})
	}

	mux := http.NewServeMux()
	srv.Routes(mux)

	body, _ := json.Marshal(BatchRequest{BatchSize: 4})
	req := httptest.NewRequest(http.MethodPost, "/batch/mlm", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var samples []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &samples))
	require.Len(t, samples, 4)
}

func TestBatchHandlerRejectsInvalidBatchSize(t *testing.T) {
	srv, _ := newTestServer()
	mux := http.NewServeMux()
	srv.Routes(mux)

	body, _ := json.Marshal(BatchRequest{BatchSize: 0})
	req := httptest.NewRequest(http.MethodPost, "/batch/mlm", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchHandlerInsufficientDataReturns503(t *testing.T) {
	srv, s := newTestServer()
	pushSample(t, s, "mlm", "ds1", map[string]any{"identifier": "x"})

	mux := http.NewServeMux()
	srv.Routes(mux)

	body, _ := json.Marshal(BatchRequest{BatchSize: 10})
	req := httptest.NewRequest(http.MethodPost, "/batch/mlm", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBatchHandlerNoQueuesReturns503(t *testing.T) {
	srv, _ := newTestServer()
	mux := http.NewServeMux()
	srv.Routes(mux)

	body, _ := json.Marshal(BatchRequest{BatchSize: 1})
	req := httptest.NewRequest(http.MethodPost, "/batch/mlm", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusHandlerReportsCounts(t *testing.T) {
	srv, s := newTestServer()
	pushSample(t, s, "mlm", "ds1", map[string]any{"identifier": "x"})
	pushSample(t, s, "mlm", "ds1", map[string]any{"identifier": "y"})
	require.NoError(t, s.RPush(testCtx(), sourceKeyPrefix+"ds1", mustCompress(t, map[string]any{"identifier": "z"})))

	mux := http.NewServeMux()
	srv.Routes(mux)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var status CacheStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, int64(2), status.Samples["kl3m:samples:mlm:ds1"])
	require.Equal(t, int64(2), status.TaskCounts["mlm"])
	require.Equal(t, int64(1), status.Sources["kl3m:sources:ds1"])
}

func TestRandomSourceHandlerReturnsRecordWithDataset(t *testing.T) {
	srv, s := newTestServer()
	require.NoError(t, s.RPush(testCtx(), sourceKeyPrefix+"ds1", mustCompress(t, map[string]any{"identifier": "z"})))

	mux := http.NewServeMux()
	srv.Routes(mux)

	req := httptest.NewRequest(http.MethodGet, "/source/random", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var record map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	require.Equal(t, "ds1", record["dataset"])
	require.Equal(t, "z", record["identifier"])
}

func TestRandomSourceHandlerNoSourcesReturns503(t *testing.T) {
	srv, _ := newTestServer()
	mux := http.NewServeMux()
	srv.Routes(mux)

	req := httptest.NewRequest(http.MethodGet, "/source/random", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func mustCompress(t *testing.T, v any) []byte {
	t.Helper()
	blob, err := compressRecord(v)
	require.NoError(t, err)
	return blob
}

func testCtx() context.Context {
	return context.Background()
}
