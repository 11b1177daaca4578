// Command tunehub-server starts the tunehub session gRPC server.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	apiv1 "github.com/and161185/tunehub/internal/api/v1"
	"github.com/and161185/tunehub/internal/config"
	"github.com/and161185/tunehub/internal/crypto"
	"github.com/and161185/tunehub/internal/limiter"
	"github.com/and161185/tunehub/internal/migrate"
	"github.com/and161185/tunehub/internal/repository"
	"github.com/and161185/tunehub/internal/repository/memory"
	"github.com/and161185/tunehub/internal/repository/postgres"
	"github.com/and161185/tunehub/internal/repository/redis"
	grpcserver "github.com/and161185/tunehub/internal/server/grpc"
	"github.com/and161185/tunehub/internal/service"
	"github.com/and161185/tunehub/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, prepares stores and serves the Session API until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.Stringer("config", cfg),
	)

	creds := insecure.NewCredentials()
	if !cfg.Insecure {
		creds, err = credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("stores", zap.Error(err))
	}
	defer st.close()

	issuer, err := token.NewIssuer(token.Config{
		AccessKey:  []byte(cfg.AccessKey),
		RefreshKey: []byte(cfg.RefreshKey),
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Issuer:     cfg.Issuer,
	})
	if err != nil {
		logger.Fatal("token issuer", zap.Error(err))
	}

	// Services
	authSvc := service.NewAuthService(st.accounts, st.sessions, crypto.Argon2Hasher{}, issuer, st.limiter, logger)
	libSvc := service.NewLibraryService(st.accounts, logger)

	hk := service.NewHousekeeper(st.sessions, cfg.HousekeepingInterval, logger)
	go hk.Run(ctx)

	s := grpcserver.NewGRPCServer(grpcserver.New(authSvc, libSvc, logger), issuer, logger, grpc.Creds(creds))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(apiv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	if cfg.Dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("tls", !cfg.Insecure))
		errCh <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(cfg.ShutdownTimeout):
			s.Stop()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		st.close()
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

type stores struct {
	accounts repository.AccountRepository
	sessions repository.SessionRepository
	limiter  limiter.Limiter
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// openStores builds account, session and limiter backends for the configured drivers.
func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (*stores, error) {
	st := &stores{}
	policy := limiter.Policy{Window: cfg.LoginWindow, MaxFails: cfg.LoginMaxFails, BlockFor: cfg.LoginBlockFor}

	var db *postgres.DB
	if cfg.Store == config.DriverPostgres {
		if err := migrate.Up(ctx, cfg.DSN); err != nil {
			return nil, err
		}
		var err error
		db, err = postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		st.closers = append(st.closers, db.Close)
		st.accounts = postgres.NewAccountRepo(db)
		st.limiter = limiter.NewPG(db.Pool, policy)
	} else {
		log.Warn("account store is in-memory, data is lost on restart")
		st.accounts = memory.NewAccountStore()
		st.limiter = limiter.NewMemory(policy, time.Now)
	}

	switch cfg.SessionStore {
	case config.DriverPostgres:
		st.sessions = postgres.NewSessionRepo(db)
	case config.DriverRedis:
		rdb, err := redis.NewClient(redis.Config{
			Addrs:    cfg.RedisAddrs,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			st.close()
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = rdb.Close() })
		rs := redis.NewSessionStore(rdb)
		if err := rs.Ping(ctx); err != nil {
			st.close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		st.sessions = rs
	default:
		st.sessions = memory.NewSessionStore()
	}
	return st, nil
}
