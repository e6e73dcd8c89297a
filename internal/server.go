package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/analytics"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/config"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/db"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/exercises"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/middleware"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/prs"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/revalidate"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/sessions"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/targets"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/metrics"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/templates"
)

const viewCacheSizeBytes = 32 * 1024 * 1024

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config *config.Config
	dbPool *pgxpool.Pool

	redisClient *redis.Client
	marker      *revalidate.Marker
	viewCache   *revalidate.ViewCache

	sessionsService *sessions.Service

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	if err := db.Migrate(ctx, dbPool); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("workouts", "backend", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "workouts-backend")
	if err != nil {
		return nil, err
	}

	sessionTZ, err := time.LoadLocation(params.Config.SessionTimeZone)
	if err != nil {
		return nil, fmt.Errorf("load session time zone [%s]: %w", params.Config.SessionTimeZone, err)
	}

	prsRepo := prs.NewRepo(dbPool)
	sessionsService := sessions.NewService(
		sessions.NewRepo(dbPool),
		templates.NewRepo(dbPool),
		prs.NewDetector(prsRepo),
		sessionTZ,
	)

	return &Server{
		config:      params.Config,
		dbPool:      dbPool,
		versionInfo: params.VersionInfo,

		redisClient: rdb,
		marker:      revalidate.NewMarker(rdb),
		viewCache:   revalidate.NewViewCache(viewCacheSizeBytes),

		sessionsService: sessionsService,

		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	targetsHandler := targets.NewHandler(targets.NewRepo(s.dbPool))
	targetsHandler.SetupRoutes(r)

	exercisesHandler := exercises.NewHandler(exercises.NewRepo(s.dbPool), s.marker)
	exercisesHandler.SetupRoutes(r)

	templatesHandler := templates.NewHandler(templates.NewRepo(s.dbPool), s.marker)
	templatesHandler.SetupRoutes(r)

	sessionsHandler := sessions.NewHandler(s.sessionsService, s.marker, s.metricsManager)
	sessionsHandler.SetupRoutes(r)

	prsHandler := prs.NewHandler(prs.NewRepo(s.dbPool))
	prsHandler.SetupRoutes(r)

	analyticsHandler := analytics.NewHandler(
		analytics.NewRepo(s.dbPool),
		s.marker,
		s.viewCache,
		s.metricsManager,
	)
	analyticsHandler.SetupRoutes(r)

	r.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte(s.versionInfo)); err != nil {
			log.Errorf("failed to write version response: %s", err)
		}
	}).Methods("GET")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(s.mutationRateLimit())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

// mutationRateLimit applies the redis rate limiter to mutation requests
// only, keyed per vault. Reads stay unlimited, they are cheap and cached.
func (s *Server) mutationRateLimit() mux.MiddlewareFunc {
	limit := middleware.RateLimit(
		redis_rate.NewLimiter(s.redisClient),
		s.metricsManager,
		func(r *http.Request) string {
			vaultID := mux.Vars(r)["vaultId"]
			if vaultID == "" {
				vaultID = r.RemoteAddr
			}
			return "mutations::" + vaultID
		},
		s.config.MutationRateLimitAllowedPerMin,
	)
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodDelete:
				limited.ServeHTTP(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
