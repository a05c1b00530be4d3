package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"dockmon/internal/alerts"
	"dockmon/internal/config"
	"dockmon/internal/docker"
	"dockmon/internal/handlers"
	"dockmon/internal/middleware"
	"dockmon/internal/models"
	"dockmon/internal/monitor"
	"dockmon/internal/notify"
	"dockmon/internal/store"
	"dockmon/internal/telemetry"
	"dockmon/internal/utils"
	"dockmon/internal/version"
)

// App owns every long-lived service object, constructed once per process
// and passed by reference to the handlers.
type App struct {
	cfg         config.Config
	log         *utils.Logger
	docker      *docker.Client
	users       *store.UserStore
	samples     *store.SampleStore
	alertStore  *store.AlertStore
	engine      *alerts.Engine
	hub         *notify.Hub
	listStore   notify.ListStore
	service     *notify.Service
	registry    *monitor.Registry
	host        *telemetry.Host
	authService *middleware.AuthService
	rateLimiter *middleware.RateLimiter
}

func newApp(cfg config.Config) (*App, error) {
	logger := utils.NewLogger(cfg.LogFile)
	logger.Writef("dockmon %s starting", version.String())

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	var listStore notify.ListStore
	if cfg.RedisAddr != "" {
		rls := notify.NewRedisListStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rls.Ping(ctx)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("redis at %s unreachable: %w", cfg.RedisAddr, err)
		}
		listStore = rls
	} else {
		logger.Write("No redis configured; notification buffer is in-memory only")
		listStore = notify.NewMemoryListStore()
	}

	app := &App{
		cfg:         cfg,
		log:         logger,
		docker:      docker.NewClient(cfg.DockerSocket),
		users:       store.NewUserStore(db),
		samples:     store.NewSampleStore(db),
		alertStore:  store.NewAlertStore(db),
		hub:         notify.NewHub(logger),
		listStore:   listStore,
		host:        telemetry.NewHost("/"),
		authService: middleware.NewAuthService(cfg.JWTSecret),
		rateLimiter: middleware.NewRateLimiter(rate.Every(time.Minute/100), 10),
	}
	app.engine = alerts.NewEngine(app.alertStore, logger)
	app.service = notify.NewService(app.hub, notify.NewPersistence(listStore, logger),
		notify.NewMailer(cfg), app.alertStore, app.users, logger)
	app.registry = monitor.NewRegistry(app.docker, app.samples, app.evaluate,
		logger, cfg.PollTimeout, cfg.MaxPollFailures)
	return app, nil
}

// evaluate is the collection loop's alerting step: run the engine over
// the sample and hand every firing to the notification coordinator.
func (a *App) evaluate(ctx context.Context, sample models.MetricSample) {
	fired, err := a.engine.Evaluate(ctx, sample)
	if err != nil {
		a.log.Writef("Alert evaluation failed for %s: %v", sample.ResourceID, err)
		return
	}
	for _, f := range fired {
		a.service.AlertFired(ctx, f)
	}
}

// bootstrapAdmin creates the first account when the user table is empty.
func (a *App) bootstrapAdmin(ctx context.Context) error {
	n, err := a.users.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	password := os.Getenv("DOCKMON_ADMIN_PASSWORD")
	if password == "" {
		password = uuid.NewString()
		a.log.Writef("Generated admin password: %s", password)
	}
	hash, err := a.authService.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = a.users.Create(ctx, "admin", os.Getenv("DOCKMON_ADMIN_EMAIL"), hash)
	if err == nil {
		a.log.Write("Created initial admin account")
	}
	return err
}

// autoStart begins collection for every running container.
func (a *App) autoStart(ctx context.Context) {
	containers, err := a.docker.List(ctx)
	if err != nil {
		a.log.Writef("Autostart: container list failed: %v", err)
		return
	}
	for _, ct := range containers {
		if !strings.EqualFold(ct.State, "running") {
			continue
		}
		if _, err := a.registry.Start(ct.ID, a.cfg.DefaultInterval); err != nil {
			a.log.Writef("Autostart %s: %v", ct.Name(), err)
		}
	}
}

func (a *App) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
		)
	}))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(a.rateLimiter.Middleware())

	authH := handlers.NewAuthHandlers(a.users, a.authService, a.log)
	streamH := handlers.NewStreamHandlers(a.registry, a.cfg.DefaultInterval, a.log)
	alertH := handlers.NewAlertHandlers(a.engine, a.service, a.log)
	metricH := handlers.NewMetricHandlers(a.samples, a.docker, a.host, a.log)
	wsH := handlers.NewWSHandlers(a.authService, a.hub, a.service, a.log)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.String()})
	})
	r.POST("/api/login", authH.APILogin)
	r.POST("/api/logout", authH.APILogout)

	api := r.Group("/api")
	api.Use(a.authService.RequireAPIAuth())
	{
		api.GET("/streams", streamH.APIStreamList)
		api.GET("/streams/:resource_id", streamH.APIStreamGet)
		api.POST("/streams/:resource_id/start", streamH.APIStreamStart)
		api.POST("/streams/:resource_id/stop", streamH.APIStreamStop)

		api.POST("/alerts", alertH.APIAlertCreate)
		api.GET("/alerts", alertH.APIAlertList)
		api.GET("/alerts/:alert_id", alertH.APIAlertGet)
		api.PUT("/alerts/:alert_id", alertH.APIAlertUpdate)
		api.DELETE("/alerts/:alert_id", alertH.APIAlertDelete)
		api.POST("/alerts/:alert_id/acknowledge", alertH.APIAlertAcknowledge)

		api.GET("/containers", metricH.APIContainerList)
		api.GET("/containers/:resource_id/metrics", metricH.APIContainerMetrics)
		api.GET("/system", metricH.APISystem)
	}

	// The WebSocket endpoint authenticates inside the handler so browser
	// clients can pass the token as a query parameter.
	r.GET("/api/ws", wsH.HandleWebSocket)
	return r
}

func main() {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg := config.Load()
	app, err := newApp(cfg)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}

	ctx := context.Background()
	if err := app.bootstrapAdmin(ctx); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}
	if cfg.AutoStart {
		app.autoStart(ctx)
	}

	srv := &http.Server{
		Addr:           cfg.Addr,
		Handler:        app.setupRouter(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   0, // WebSocket connections outlive request deadlines
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		var err error
		if cfg.UseTLS {
			if cfg.TLSCert == "" || cfg.TLSKey == "" {
				log.Fatal("DOCKMON_USE_TLS is enabled but DOCKMON_TLS_CERT or DOCKMON_TLS_KEY not provided")
			}
			app.log.Writef("Starting HTTPS server on %s", cfg.Addr)
			err = srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			app.log.Writef("Starting server on %s", cfg.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Write("Shutting down")

	app.registry.Shutdown()
	app.hub.Shutdown()
	app.rateLimiter.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	app.log.Write("Server exited")
}
