package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"casaluna/internal/api/http/handle"
	"casaluna/internal/auth"
	"casaluna/internal/events"
	orderdb "casaluna/internal/order/adapter/db"
	orderservices "casaluna/internal/order/app/services"
	resdb "casaluna/internal/reservation/adapter/db"
	resservices "casaluna/internal/reservation/app/services"
	"casaluna/internal/xpkg/config"
	"casaluna/internal/xpkg/db"
	"casaluna/internal/xpkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Server owns the HTTP surface and the process-wide event bus. The bus and
// its observer registries live exactly as long as the server; a restart
// drops every live subscription.
type Server struct {
	cfg   *config.Config
	mylog logger.Logger

	mux *http.ServeMux
	srv *http.Server
	db  *db.DB
	bus *events.Bus
	mu  sync.Mutex
}

func NewServer(cfg *config.Config, mylog logger.Logger) *Server {
	return &Server{
		cfg:   cfg,
		mylog: mylog,
		mux:   http.NewServeMux(),
		bus:   events.NewBus(),
	}
}

// Run connects the database, wires the handlers and serves until ctx is
// cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	mylog := s.mylog.Action("server_started")

	database, err := db.Start(ctx, s.cfg.DB)
	if err != nil {
		mylog.Action("db_connection_failed").Error("Failed to connect to database", err)
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = database
	mylog.Action("db_connected").Info("Successful database connection")

	s.Configure()

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.withRequestID(s.mux),
	}
	s.mu.Unlock()

	mylog.Info("server is running", "port", s.cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop shuts the HTTP server down gracefully and closes the database pool.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Action("graceful_shutdown_started").Info("Shutting down HTTP server...")

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Action("graceful_shutdown_failed").Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.db != nil {
		if err := s.db.Stop(); err != nil {
			s.mylog.Action("db_close_failed").Error("Failed to close database", err)
			return fmt.Errorf("db close: %w", err)
		}
		s.mylog.Action("db_closed").Info("Database closed")
	}

	s.mylog.Action("graceful_shutdown_completed").Info("HTTP server shut down gracefully")
	return nil
}

// Configure builds repositories, services and handlers and registers every
// route. It runs once the database connection is up.
func (s *Server) Configure() {
	menuRepo := orderdb.NewMenuRepo(s.db)
	orderRepo := orderdb.NewOrderRepo(s.db, menuRepo)
	orderService := orderservices.NewOrderService(orderRepo, s.bus, s.mylog)

	reservationRepo := resdb.NewReservationRepo(s.db)
	reservationService := resservices.NewReservationService(
		reservationRepo, s.bus, s.cfg.Reservations.SlotCapacity, s.mylog)

	verifier := auth.NewVerifier(s.cfg.Admin.Token)

	orderHandler := handle.NewOrderHandler(orderService, s.mylog)
	adminHandler := handle.NewAdminHandler(orderService, verifier, s.mylog)
	streamHandler := handle.NewStreamHandler(orderService, s.bus, s.cfg.PingInterval(), s.mylog)
	reservationHandler := handle.NewReservationHandler(reservationService, s.mylog)

	s.mux.HandleFunc("POST /api/orders", orderHandler.Create())
	s.mux.HandleFunc("GET /api/orders/track", orderHandler.Track())
	s.mux.HandleFunc("GET /api/orders/{id}", orderHandler.Get())
	s.mux.HandleFunc("POST /api/orders/{id}/collect", orderHandler.Collect())
	s.mux.HandleFunc("GET /api/orders/{id}/events", streamHandler.OrderEvents())

	s.mux.HandleFunc("POST /api/reservations", reservationHandler.Create())
	s.mux.HandleFunc("GET /api/reservations/{id}", reservationHandler.Get())

	s.mux.HandleFunc("GET /api/admin/orders", adminHandler.Secure(adminHandler.List()))
	s.mux.HandleFunc("PATCH /api/admin/orders/{id}/status", adminHandler.Secure(adminHandler.UpdateStatus()))
	s.mux.HandleFunc("GET /api/admin/orders/events", adminHandler.Secure(streamHandler.AdminEvents()))
	s.mux.HandleFunc("GET /api/admin/reservations", adminHandler.Secure(reservationHandler.List()))
	s.mux.HandleFunc("PATCH /api/admin/reservations/{id}/status", adminHandler.Secure(reservationHandler.UpdateStatus()))

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withRequestID tags each request with an id, exposed in the response
// header and logged with the request line.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		s.mylog.Action("request_received").Debug("Handling request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
		)
		next.ServeHTTP(w, r)
	})
}
