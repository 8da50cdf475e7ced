package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"futures-testnet-bot/internal/logger"
	"futures-testnet-bot/internal/model"
	"futures-testnet-bot/internal/repository"
)

// OrderService is the core surface the web form drives. It must not be
// bypassed: the handlers never validate orders themselves.
type OrderService interface {
	Submit(ctx context.Context, req model.OrderRequest) model.OrderResult
	Validate(ctx context.Context, req model.OrderRequest) (model.NormalizedOrder, *model.Rejection)
	CheckHealth(ctx context.Context) model.HealthStatus
	Filter(ctx context.Context, symbol string) (model.SymbolFilter, error)
	RefreshFilter(ctx context.Context, symbol string) (model.SymbolFilter, error)
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
	Account() (model.AccountSummary, bool)
}

type OrderHistory interface {
	Recent(ctx context.Context, limit int) ([]repository.OrderRecord, error)
}

type Server struct {
	router  *http.ServeMux
	server  *http.Server
	bot     OrderService
	history OrderHistory
	metrics http.Handler
}

func NewServer(addr string, bot OrderService, history OrderHistory, metrics http.Handler) *Server {
	s := &Server{
		router:  http.NewServeMux(),
		bot:     bot,
		history: history,
		metrics: metrics,
	}
	s.routes()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.logRequests(s.router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	// Orders
	s.router.HandleFunc("POST /api/orders", s.handleSubmitOrder)
	s.router.HandleFunc("POST /api/orders/validate", s.handleValidateOrder)
	s.router.HandleFunc("GET /api/orders", s.handleRecentOrders)

	// Symbol rules and prices
	s.router.HandleFunc("GET /api/filters/{symbol}", s.handleGetFilter)
	s.router.HandleFunc("POST /api/filters/{symbol}/refresh", s.handleRefreshFilter)
	s.router.HandleFunc("GET /api/prices/{symbol}", s.handleGetPrice)

	// Status
	s.router.HandleFunc("GET /api/health", s.handleHealth)
	s.router.HandleFunc("GET /api/account", s.handleAccount)

	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics)
	}
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	logger.Info("🌐 Starting web server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
