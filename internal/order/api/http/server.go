package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"mon-resto/internal/mylogger"
	"mon-resto/internal/order/api/http/handle"
	"mon-resto/internal/order/api/http/mw"
	"mon-resto/internal/order/app/core"
	"mon-resto/internal/order/app/services"
	"mon-resto/internal/order/adapter/broker"
	"mon-resto/internal/order/adapter/cache"
	database "mon-resto/internal/order/adapter/db"
	"mon-resto/internal/order/adapter/reviews"
	"mon-resto/internal/xpkg/config"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ErrServerClosed is returned by Run after a context-driven shutdown.
var ErrServerClosed = errors.New("server closed")

type Server struct {
	router      chi.Router
	cfg         *config.Config
	srv         *http.Server
	orderParams *core.OrderParams
	mylog       mylogger.Logger
	db          core.IDB
	mb          core.IRabbitMQ
	statusCache *cache.StatusCache
	ctx         context.Context
	appCtx      context.Context
	mu          sync.Mutex
}

func NewServer(ctx, appCtx context.Context, cfg *config.Config, orderParams *core.OrderParams, mylog mylogger.Logger) *Server {
	return &Server{
		ctx:         ctx,
		appCtx:      appCtx,
		cfg:         cfg,
		orderParams: orderParams,
		mylog:       mylog,
		router:      chi.NewRouter(),
	}
}

// Run initializes connections and routes and starts listening. It returns
// when the server stops.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	if err := s.initializeDatabase(); err != nil {
		mylog.Action("db_connection_failed").Error("Failed to connect to database", err)
		return err
	}

	if err := s.initializeRabbitMQ(); err != nil {
		mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
		return err
	}
	mylog.Action("mb_connected").Info("Successful message broker connection")

	s.statusCache = cache.New(s.cfg.Redis, s.cfg.StatusCacheTTL)

	s.configure()

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.orderParams.Port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.mu.Unlock()

	mylog.WithGroup("details").With("port", s.orderParams.Port).Info("server is running")
	return s.startHTTPServer()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Action("graceful_shutdown_started").Info("Shutting down HTTP server")

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, core.WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Action("graceful_shutdown_failed").Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.statusCache != nil {
		if err := s.statusCache.Close(); err != nil {
			s.mylog.Action("cache_close_failed").Error("Failed to close redis client", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.mylog.Action("db_close_failed").Error("Failed to close database", err)
			return fmt.Errorf("db close: %w", err)
		}
		s.mylog.Action("db_closed").Info("Database closed")
	}

	if s.mb != nil {
		if err := s.mb.Close(); err != nil {
			s.mylog.Action("mb_close_failed").Error("Failed to close message broker", err)
			return fmt.Errorf("mb close: %w", err)
		}
		s.mylog.Action("mb_closed").Info("Message broker closed")
	}

	s.mylog.Action("graceful_shutdown_completed").Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return ErrServerClosed
	case err := <-errCh:
		return err
	}
}

func (s *Server) initializeDatabase() error {
	db, err := database.Start(s.appCtx, s.cfg.DB, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db
	return nil
}

func (s *Server) initializeRabbitMQ() error {
	mb, err := broker.New(s.appCtx, s.cfg.RMQ, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	s.mb = mb
	return nil
}

func (s *Server) configure() {
	orderRepo := database.NewOrderRepo(s.db)
	reviewsClient := reviews.NewClient(s.cfg.ReviewServiceURL)

	orderService := services.NewOrderService(s.ctx, orderRepo, s.mb, s.statusCache, reviewsClient, s.mylog)
	orderHandler := handle.NewOrderHandler(orderService, s.mylog)

	s.router.Use(mw.Logging(s.mylog))

	s.router.With(mw.CheckoutRateLimit(s.cfg.CheckoutRatePerMinute)).
		Post("/orders", orderHandler.Checkout())

	s.router.Post("/orders/{id}/{command}", orderHandler.Transition())
	s.router.Get("/orders/{id}/status", orderHandler.GetStatus())
	s.router.Get("/orders/{id}/history", orderHandler.GetHistory())
	s.router.Get("/orders/{id}", orderHandler.GetOrder())
	s.router.Get("/orders", orderHandler.ListActive())
	s.router.Post("/orders/{id}/rating", orderHandler.SubmitRating())

	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
