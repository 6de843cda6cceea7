package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/bandscore/internal/answerkey"
	"github.com/victornm/bandscore/internal/api"
	"github.com/victornm/bandscore/internal/event"
	"github.com/victornm/bandscore/internal/leaderboard"
	"github.com/victornm/bandscore/internal/practice"
	"github.com/victornm/bandscore/internal/score"
	"github.com/victornm/bandscore/internal/streak"
	"github.com/victornm/bandscore/internal/telemetry"
)

type RedisConfig struct {
	Addrs  []string
	Pass   string
	Prefix string
}

type PostgresConfig struct {
	Addr string
	User string
	Pass string
	Name string
}

type Config struct {
	Log struct {
		// Level is one of debug, info, warn or error.
		Level string
	}

	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Redis struct {
		Streak      RedisConfig
		Leaderboard RedisConfig
		Pubsub      RedisConfig
	}

	Postgres struct {
		AnswerKey PostgresConfig
		Score     PostgresConfig
	}

	Event struct {
		PoolSize int
		Timeout  time.Duration
	}

	Streak struct {
		MaxAttempts int
	}

	Leaderboard struct {
		Limit int
	}

	ShutdownTimeout time.Duration
}

// DefaultConfig is the config Load starts from before the file and environment.
func DefaultConfig() Config {
	var c Config
	c.Log.Level = "info"
	c.HTTP.Port = 8080
	c.GRPC.Port = 9090
	c.Redis.Streak.Prefix = "bandscore"
	c.Redis.Leaderboard.Prefix = "bandscore"
	c.Redis.Pubsub.Prefix = "bandscore"
	c.Event.PoolSize = 1000
	c.Event.Timeout = 30 * time.Second
	c.Streak.MaxAttempts = 10
	c.Leaderboard.Limit = 100
	c.ShutdownTimeout = 5 * time.Second
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			streak      redis.UniversalClient
			leaderboard redis.UniversalClient
			pubsub      redis.UniversalClient
		}

		postgres struct {
			answerKey *pgxpool.Pool
			score     *pgxpool.Pool
		}
	}

	service struct {
		answerKey   *answerkey.Service
		score       *score.Service
		practice    *practice.Service
		leaderboard *leaderboard.Service
	}

	http   *http.Server
	grpc   *grpc.Server
	health *health.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	if err := telemetry.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("server: register metrics: %w", err)
	}

	s.eb = event.NewBus(
		event.WithPoolSize(c.Event.PoolSize),
		event.WithTimeout(c.Event.Timeout),
	)

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(c RedisConfig) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    c.Addrs,
			Password: c.Pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.streak, err = connect(s.c.Redis.Streak)
	if err != nil {
		return fmt.Errorf("streak: %w", err)
	}

	s.infra.redis.leaderboard, err = connect(s.c.Redis.Leaderboard)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() (err error) {
	connect := func(c PostgresConfig) (*pgxpool.Pool, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", c.User, c.Pass, c.Addr, c.Name))
		if err != nil {
			return nil, err
		}

		db, err := pgxpool.NewWithConfig(ctx, cc)
		if err != nil {
			return nil, err
		}

		if err := db.Ping(ctx); err != nil {
			return nil, err
		}

		return db, nil
	}

	s.infra.postgres.answerKey, err = connect(s.c.Postgres.AnswerKey)
	if err != nil {
		return fmt.Errorf("answer key: %w", err)
	}

	s.infra.postgres.score, err = connect(s.c.Postgres.Score)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}

	return nil
}

func (s *Server) initService() {
	s.service.answerKey = answerkey.NewService(answerkey.Config{
		DB: s.infra.postgres.answerKey,
	})

	s.service.score = score.NewService(score.Config{
		DB: s.infra.postgres.score,
	})

	streaks := streak.NewRedisStore(streak.Config{
		Redis:       s.infra.redis.streak,
		Prefix:      s.c.Redis.Streak.Prefix,
		MaxAttempts: s.c.Streak.MaxAttempts,
	})

	s.service.practice = practice.NewService(practice.Config{
		EventBus:   s.eb,
		AnswerKeys: s.service.answerKey,
		Scores:     s.service.score,
		Streaks:    streaks,
	})

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus: s.eb,
		Redis:    s.infra.redis.leaderboard,
		Prefix:   s.c.Redis.Leaderboard.Prefix,
		Limit:    s.c.Leaderboard.Limit,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), telemetry.GinMetrics())

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptor()...)
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)

	api.New(api.Config{
		HTTP:         e,
		EventBus:     s.eb,
		AnswerKeys:   s.service.answerKey,
		Scores:       s.service.score,
		Practice:     s.service.practice,
		Leaderboard:  s.service.leaderboard,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.Background()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.c.ShutdownTimeout)
	defer cancel()

	s.health.Shutdown()
	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	s.infra.postgres.answerKey.Close()
	s.infra.postgres.score.Close()
	for _, r := range []redis.UniversalClient{s.infra.redis.streak, s.infra.redis.leaderboard, s.infra.redis.pubsub} {
		if err := r.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "error", err)
		}
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
