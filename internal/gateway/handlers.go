package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"groww-scanner/internal/cache"
	"groww-scanner/internal/metrics"
	"groww-scanner/internal/model"
	"groww-scanner/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// RelativeComputer answers on-demand relative-strength queries for one
// symbol against every benchmark it maps to. Returns nil when the symbol
// has no usable candles.
type RelativeComputer interface {
	SymbolMetrics(ctx context.Context, symbol string, tf model.Timeframe, bars int) (*model.RelativePayload, error)
}

// Server bundles the read-path dependencies behind one router.
type Server struct {
	store    *store.Store
	cache    *cache.Cache
	hub      *Hub
	relative RelativeComputer
	health   *metrics.HealthStatus
	metrics  *metrics.Metrics
}

func NewServer(st *store.Store, ca *cache.Cache, hub *Hub, rel RelativeComputer, health *metrics.HealthStatus, m *metrics.Metrics) *Server {
	return &Server{store: st, cache: ca, hub: hub, relative: rel, health: health, metrics: m}
}

// SetCORS sets permissive CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// Routes builds the full HTTP surface: snapshot reads, the WebSocket
// feed, health and Prometheus metrics.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/scanner", s.handleScanner).Methods(http.MethodGet)
	r.HandleFunc("/symbol/{symbol}", s.handleSymbol).Methods(http.MethodGet)
	r.HandleFunc("/benchmarks", s.handleBenchmarks).Methods(http.MethodGet)
	r.HandleFunc("/relative/{symbol}", s.handleRelative).Methods(http.MethodGet)
	r.HandleFunc("/ws/scanner", s.handleWS)
	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		SetCORS(w)
		s.health.ServeHTTP(w, req)
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// timeframeParam reads ?timeframe=, defaulting to 5m like the scheduler's
// fastest cadence.
func timeframeParam(r *http.Request) (model.Timeframe, error) {
	raw := r.URL.Query().Get("timeframe")
	if raw == "" {
		return model.TF5m, nil
	}
	return model.ParseTimeframe(raw)
}

func (s *Server) handleScanner(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	tf, err := timeframeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if b := s.cachedPayload(r.Context(), cache.ScannerKey(tf), "scanner"); b != nil {
		writeRaw(w, b)
		return
	}

	ts, rows, err := s.store.LatestSnapshot(r.Context(), tf)
	if err != nil {
		log.Printf("[gateway] scanner read failed: %v", err)
		writeError(w, http.StatusInternalServerError, "snapshot read failed")
		return
	}
	if rows == nil {
		writeError(w, http.StatusNotFound, "scanner data not available")
		return
	}
	writeJSON(w, http.StatusOK, &model.ScannerPayload{
		Timeframe: tf,
		TS:        ts.Format(time.RFC3339),
		Rows:      rows,
	})
}

func (s *Server) handleSymbol(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	tf, err := timeframeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	symbol := mux.Vars(r)["symbol"]

	var payload model.ScannerPayload
	if b := s.cachedPayload(r.Context(), cache.ScannerKey(tf), "scanner"); b != nil && json.Unmarshal(b, &payload) == nil {
		// cached snapshot is authoritative for the latest scan
	} else {
		ts, rows, err := s.store.LatestSnapshot(r.Context(), tf)
		if err != nil {
			log.Printf("[gateway] symbol read failed: %v", err)
			writeError(w, http.StatusInternalServerError, "snapshot read failed")
			return
		}
		if rows == nil {
			writeError(w, http.StatusNotFound, "scanner data not available")
			return
		}
		payload = model.ScannerPayload{Timeframe: tf, TS: ts.Format(time.RFC3339), Rows: rows}
	}

	var matched []model.SnapshotRow
	for _, row := range payload.Rows {
		if row.Symbol == symbol {
			matched = append(matched, row)
		}
	}
	if len(matched) == 0 {
		writeError(w, http.StatusNotFound, "symbol not found")
		return
	}
	writeJSON(w, http.StatusOK, &model.ScannerPayload{
		Timeframe: payload.Timeframe,
		TS:        payload.TS,
		Rows:      matched,
	})
}

func (s *Server) handleBenchmarks(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	tf, err := timeframeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if b := s.cachedPayload(r.Context(), cache.BenchmarksKey(tf), "benchmarks"); b != nil {
		writeRaw(w, b)
		return
	}

	ts, states, err := s.store.LatestBenchmarkStates(r.Context(), tf)
	if err != nil {
		log.Printf("[gateway] benchmarks read failed: %v", err)
		writeError(w, http.StatusInternalServerError, "benchmark read failed")
		return
	}
	if states == nil {
		writeError(w, http.StatusNotFound, "benchmark data not available")
		return
	}
	writeJSON(w, http.StatusOK, &model.BenchmarksPayload{
		Timeframe: tf,
		TS:        ts.Format(time.RFC3339),
		States:    states,
	})
}

func (s *Server) handleRelative(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	tf, err := timeframeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	symbol := mux.Vars(r)["symbol"]

	bars := 0
	if raw := r.URL.Query().Get("bars"); raw != "" {
		bars, err = strconv.Atoi(raw)
		if err != nil || bars <= 0 {
			writeError(w, http.StatusBadRequest, "bars must be a positive integer")
			return
		}
	}

	payload, err := s.relative.SymbolMetrics(r.Context(), symbol, tf, bars)
	if err != nil {
		log.Printf("[gateway] relative compute failed for %s: %v", symbol, err)
		writeError(w, http.StatusInternalServerError, "relative compute failed")
		return
	}
	if payload == nil {
		writeError(w, http.StatusNotFound, "no candles for symbol "+symbol)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	tf, err := timeframeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade error: %v", err)
		return
	}
	s.hub.HandleWS(conn, tf)
}

// cachedPayload reads a cached JSON payload, counting hit/miss and
// treating cache errors as misses.
func (s *Server) cachedPayload(ctx context.Context, key, family string) []byte {
	b, err := s.cache.GetBytes(ctx, key)
	if err != nil {
		log.Printf("[gateway] cache read %s failed: %v", key, err)
	}
	if b != nil {
		s.metrics.CacheHits.WithLabelValues(family).Inc()
		return b
	}
	s.metrics.CacheMisses.WithLabelValues(family).Inc()
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[gateway] response encode failed: %v", err)
	}
}

func writeRaw(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
