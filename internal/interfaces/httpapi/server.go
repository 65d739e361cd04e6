package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"txfeed/internal/application"
	"txfeed/internal/domain"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Feed is the page and count surface served over HTTP.
type Feed interface {
	GetPage(ctx context.Context, req application.PageRequest) (domain.Page, error)
	CountTransactions(ctx context.Context, chain domain.Chain, address string) (application.TransactionCount, error)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

type Server struct {
	feed      Feed
	metadata  Pinger
	metrics   *Metrics
	logger    *zap.Logger
	buildInfo BuildInfo
}

func NewServer(feed Feed, metadata Pinger, metrics *Metrics, logger *zap.Logger, buildInfo BuildInfo) (*Server, error) {
	if feed == nil || metadata == nil {
		return nil, errors.New("http server dependencies must not be nil")
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{feed: feed, metadata: metadata, metrics: metrics, logger: logger, buildInfo: buildInfo}, nil
}

func (s *Server) MetricsObserver() *Metrics {
	return s.metrics
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/getTransactions", s.handleTransactions).Methods(http.MethodGet)
	router.HandleFunc("/getTransactionCount", s.handleTransactionCount).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	return router
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, "txfeed wallet activity feed")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.metadata.Ping(ctx); err != nil {
		s.logger.Warn("metadata source not ready", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "metadata source not ready")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	chain, err := domain.ParseChain(query.Get("chain"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	page, err := s.feed.GetPage(r.Context(), application.PageRequest{
		Chain:   chain,
		Address: query.Get("address"),
		Cursor:  query.Get("cursor"),
	})
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleTransactionCount(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	chain, err := domain.ParseChain(query.Get("chain"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	count, err := s.feed.CountTransactions(r.Context(), chain, query.Get("address"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, count)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.buildInfo)
}

func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusBadRequest:
		respondError(w, status, err.Error())
	case http.StatusBadGateway:
		s.logger.Warn("upstream failure", zap.Error(err))
		respondError(w, status, "upstream fetch failed")
	default:
		s.logger.Error("request failed", zap.Error(err))
		respondError(w, status, "internal error")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrAddressRequired),
		errors.Is(err, application.ErrInvalidAddress),
		errors.Is(err, domain.ErrUnsupportedChain):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUpstreamFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
