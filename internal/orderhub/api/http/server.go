package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tableflow/internal/orderhub/api/http/handle"
	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/orderhub/app/services"
	"tableflow/internal/orderhub/broadcast"
	"tableflow/internal/orderhub/domain/models"
	"tableflow/internal/xpkg/config"
	"tableflow/internal/xpkg/logger"
	"tableflow/internal/xpkg/rabbitmq"

	brokermessage "tableflow/internal/orderhub/adapter/broker_message"
	rediscache "tableflow/internal/orderhub/adapter/cache"
	database "tableflow/internal/orderhub/adapter/db"
	"tableflow/internal/orderhub/adapter/memory"
	xdb "tableflow/internal/xpkg/db"
)

type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	srv    *http.Server
	params *core.HubParams
	mylog  logger.Logger

	ctx    context.Context
	appCtx context.Context

	pool  *xdb.Pool
	rmq   *rabbitmq.RabbitMQ
	cache *rediscache.SessionCache
	hub   *broadcast.Hub

	mu sync.Mutex
}

func NewServer(ctx, appCtx context.Context, cfg *config.Config, params *core.HubParams, mylog logger.Logger) *Server {
	return &Server{
		ctx:    ctx,
		appCtx: appCtx,
		cfg:    cfg,
		params: params,
		mylog:  mylog,
		mux:    http.NewServeMux(),
	}
}

// Run wires storage, broker and routes, then listens until the context is
// cancelled or the listener fails.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	if err := s.configure(); err != nil {
		mylog.Error("failed to configure server", err)
		return err
	}

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.params.Port),
		Handler: s.mux,
	}
	s.mu.Unlock()

	mylog.Info("server is running", "port", s.params.Port, "storage", s.cfg.Storage.Driver)
	return s.startHTTPServer()
}

// Stop shuts the listener and backing connections down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mylog := s.mylog.Action("graceful_shutdown")
	mylog.Info("shutting down HTTP server")

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, core.WaitTime)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			mylog.Error("failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			mylog.Error("failed to close redis client", err)
		}
	}
	if s.rmq != nil {
		if err := s.rmq.Close(); err != nil {
			mylog.Error("failed to close message broker", err)
			return fmt.Errorf("mb close: %w", err)
		}
	}
	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			mylog.Error("failed to close database", err)
		}
	}

	mylog.Info("HTTP server shut down gracefully")
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
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) configure() error {
	var (
		orderRepo   core.IOrderRepo
		sessionRepo core.ISessionRepo
		tableRepo   core.ITableRepo
		shiftRepo   core.IShiftRepo
		staffRepo   core.IStaffRepo
		bridge      core.IEventBridge
		cache       core.ISessionCache
	)

	switch s.cfg.Storage.Driver {
	case "memory":
		// Dev mode: in-process storage, no broker, a seeded floor plan and
		// admin account.
		mem := newMemoryStores()
		orderRepo, sessionRepo, tableRepo, shiftRepo, staffRepo = mem.orders, mem.sessions, mem.tables, mem.shifts, mem.staff
		s.mylog.Action("storage_ready").Info("using in-memory storage")
	default:
		pool, err := xdb.Connect(s.appCtx, &s.cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		s.pool = pool
		if err := database.InitSchema(s.appCtx, pool); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		s.mylog.Action("db_connected").Info("successful database connection")

		rmq, err := rabbitmq.Connect(s.appCtx, s.cfg.RMQ, s.mylog)
		if err != nil {
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		s.rmq = rmq
		bridge = brokermessage.NewEventBridge(rmq)
		s.mylog.Action("mb_connected").Info("successful message broker connection")

		orderRepo = database.NewOrderRepo(pool, s.mylog)
		sessionRepo = database.NewSessionRepo(pool)
		tableRepo = database.NewTableRepo(pool)
		shiftRepo = database.NewShiftRepo(pool)
		staffRepo = database.NewStaffRepo(pool)
	}

	if s.cfg.Redis.Enabled {
		s.cache = rediscache.NewSessionCache(s.cfg.Redis.Addr, s.mylog)
		cache = s.cache
		s.mylog.Action("cache_ready").Info("session cache enabled", "addr", s.cfg.Redis.Addr)
	}

	s.hub = broadcast.NewHub(s.mylog)

	authService := services.NewAuthService(sessionRepo, tableRepo, shiftRepo, staffRepo, cache,
		s.cfg.Auth.JWTSecret,
		time.Duration(s.cfg.Auth.SessionTTLMin)*time.Minute,
		time.Duration(s.cfg.Auth.StaffTTLMin)*time.Minute,
		s.mylog)
	shiftService := services.NewShiftService(shiftRepo,
		time.Duration(s.cfg.Auth.QRTTLMin)*time.Minute, s.mylog)
	orderService := services.NewOrderService(orderRepo, s.hub, bridge, s.mylog)

	sessionHandler := handle.NewSessionHandler(authService, s.mylog)
	shiftHandler := handle.NewShiftHandler(shiftService, s.mylog)
	orderHandler := handle.NewOrderHandler(orderService, s.mylog)
	streamHandler := handle.NewStreamHandler(s.hub, s.mylog)

	limiter := newLoginLimiter(1, 5)
	auth := func(h http.Handler) http.Handler { return requireAuth(authService, s.mylog, h) }

	s.mux.Handle("POST /api/sessions", limiter.wrap(sessionHandler.JoinTable()))
	s.mux.Handle("POST /api/staff/login", limiter.wrap(sessionHandler.StaffLogin()))
	s.mux.Handle("POST /api/auth/login", limiter.wrap(sessionHandler.ManagerLogin()))

	s.mux.Handle("POST /api/shifts/open", auth(shiftHandler.Open()))
	s.mux.Handle("POST /api/shifts/refresh-qr", auth(shiftHandler.RefreshQR()))
	s.mux.Handle("POST /api/shifts/close", auth(shiftHandler.Close()))
	s.mux.Handle("GET /api/shifts/current", auth(shiftHandler.Current()))

	s.mux.Handle("POST /api/orders", auth(orderHandler.Create()))
	s.mux.Handle("GET /api/orders/{number}", auth(orderHandler.Get()))
	s.mux.Handle("POST /api/orders/{number}/close", auth(orderHandler.Close()))
	s.mux.Handle("POST /api/orders/{number}/items/{item}/status", auth(orderHandler.Transition()))
	s.mux.Handle("GET /api/kitchen/orders", auth(orderHandler.List()))

	s.mux.Handle("GET /api/streams", auth(streamHandler.Subscribe()))

	s.mux.HandleFunc("GET /health", s.health)
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.pool != nil {
		if err := s.pool.IsAlive(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	if s.rmq != nil {
		if err := s.rmq.IsAlive(); err != nil {
			http.Error(w, "broker unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type memoryStores struct {
	orders   *memory.OrderRepo
	sessions *memory.SessionRepo
	tables   *memory.TableRepo
	shifts   *memory.ShiftRepo
	staff    *memory.StaffRepo
}

func newMemoryStores() *memoryStores {
	m := &memoryStores{
		orders:   memory.NewOrderRepo(),
		sessions: memory.NewSessionRepo(),
		tables:   memory.NewTableRepo(),
		shifts:   memory.NewShiftRepo(),
		staff:    memory.NewStaffRepo(),
	}
	for i := 1; i <= 8; i++ {
		m.tables.Seed(models.Table{
			TableID:      fmt.Sprintf("table-%d", i),
			RestaurantID: "default",
			Number:       i,
			IsOpen:       true,
		})
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	m.staff.SeedUser(models.StaffUser{
		UserID:       "admin",
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		RestaurantID: "default",
	})
	return m
}
