package broker

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/alea-labs/kl3mpipe/internal/broker/store"
)

// BatchRequest is the decoded body of POST /batch/{task}, validated with
// go-playground/validator the way ternarybob-quaero's SignalAnalysisSchema
// validates its own request/document schemas.
type BatchRequest struct {
	BatchSize int `json:"batch_size" validate:"required,gt=0,lte=16384"`
}

// CacheStatus is the response body of GET /status.
type CacheStatus struct {
	Sources    map[string]int64 `json:"sources"`
	Samples    map[string]int64 `json:"samples"`
	TaskCounts map[string]int64 `json:"task_counts"`
}

// Server exposes the Sample Broker's HTTP surface over a ListStore.
type Server struct {
	Store     store.ListStore
	Logger    arbor.ILogger
	validator *validator.Validate
}

// NewServer builds a broker Server over an already-connected ListStore.
func NewServer(s store.ListStore, logger arbor.ILogger) *Server {
	return &Server{
		Store:     s,
		Logger:    logger,
		validator: validator.New(),
	}
}

// Routes registers the broker's three endpoints on mux, using Go 1.22+
// method+wildcard patterns (the teacher's own net/http.ServeMux usage
// predates this syntax; it is the idiomatic replacement for its manual
// path-suffix slicing in internal/server/routes.go).
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /batch/{task}", s.BatchHandler)
	mux.HandleFunc("GET /status", s.StatusHandler)
	mux.HandleFunc("GET /source/random", s.RandomSourceHandler)
}

// BatchHandler implements POST /batch/{task}.
func (s *Server) BatchHandler(w http.ResponseWriter, r *http.Request) {
	task := r.PathValue("task")
	if task == "" {
		http.Error(w, "task is required", http.StatusBadRequest)
		return
	}

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		http.Error(w, "invalid batch_size: must be in [1, 16384]", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	total, queues, err := totalQueueLength(ctx, s.Store, task)
	if err != nil {
		s.Logger.Error().Err(err).Str("task", task).Msg("broker: error computing queue length")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if len(queues) == 0 {
		http.Error(w, ErrNoQueuesAvailable.Error(), http.StatusServiceUnavailable)
		return
	}
	if total < int64(req.BatchSize) {
		s.Logger.Warn().Str("task", task).Int("batch_size", req.BatchSize).Msg("broker: not enough data available")
		http.Error(w, ErrInsufficientData.Error(), http.StatusServiceUnavailable)
		return
	}

	samples, err := GetSamplesUniform(ctx, s.Store, task, req.BatchSize, 1)
	if err != nil {
		s.Logger.Error().Err(err).Str("task", task).Msg("broker: error fetching batch")
		http.Error(w, "no data available", http.StatusServiceUnavailable)
		return
	}
	if len(samples) < req.BatchSize {
		http.Error(w, "no data available", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, samples)
}

// StatusHandler implements GET /status.
func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sourceKeys, err := s.Store.Keys(ctx, sourceKeyPrefix+"*")
	if err != nil {
		s.Logger.Error().Err(err).Msg("broker: error fetching source queues")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	sources := make(map[string]int64, len(sourceKeys))
	for _, key := range sourceKeys {
		n, err := s.Store.LLen(ctx, key)
		if err != nil {
			s.Logger.Error().Err(err).Str("key", key).Msg("broker: error reading source queue length")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		sources[key] = n
	}

	sampleKeys, err := s.Store.Keys(ctx, sampleKeyPrefix+"*")
	if err != nil {
		s.Logger.Error().Err(err).Msg("broker: error fetching sample queues")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	samples := make(map[string]int64, len(sampleKeys))
	tasks := make(map[string]struct{})
	for _, key := range sampleKeys {
		n, err := s.Store.LLen(ctx, key)
		if err != nil {
			s.Logger.Error().Err(err).Str("key", key).Msg("broker: error reading sample queue length")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		samples[key] = n
		if task := taskOfSampleKey(key); task != "" {
			tasks[task] = struct{}{}
		}
	}

	taskCounts := make(map[string]int64, len(tasks))
	for task := range tasks {
		total, _, err := totalQueueLength(ctx, s.Store, task)
		if err != nil {
			s.Logger.Error().Err(err).Str("task", task).Msg("broker: error computing task total")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		taskCounts[task] = total
	}

	writeJSON(w, http.StatusOK, CacheStatus{
		Sources:    sources,
		Samples:    samples,
		TaskCounts: taskCounts,
	})
}

// RandomSourceHandler implements GET /source/random.
func (s *Server) RandomSourceHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sourceKeys, err := s.Store.Keys(ctx, sourceKeyPrefix+"*")
	if err != nil {
		s.Logger.Error().Err(err).Msg("broker: error fetching source queues")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if len(sourceKeys) == 0 {
		http.Error(w, ErrNoQueuesAvailable.Error(), http.StatusServiceUnavailable)
		return
	}

	sourceKey := sourceKeys[rand.Intn(len(sourceKeys))]

	var (
		raw []byte
		ok  bool
	)
	if rand.Float64() < 0.5 {
		raw, ok, err = s.Store.LIndex(ctx, sourceKey, 0)
	} else {
		raw, ok, err = s.Store.LIndex(ctx, sourceKey, -1)
	}
	if err != nil {
		s.Logger.Error().Err(err).Str("key", sourceKey).Msg("broker: error reading source record")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "source queue is empty", http.StatusServiceUnavailable)
		return
	}

	record, err := decompressRecord(raw)
	if err != nil {
		s.Logger.Error().Err(err).Str("key", sourceKey).Msg("broker: error decoding source record")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	record["dataset"] = strings.TrimPrefix(sourceKey, sourceKeyPrefix)

	writeJSON(w, http.StatusOK, record)
}

// taskOfSampleKey extracts "<task>" from "kl3m:samples:<task>:<dataset>".
func taskOfSampleKey(key string) string {
	parts := strings.SplitN(key, ":", 4)
	if len(parts) < 4 {
		return ""
	}
	return parts[2]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
