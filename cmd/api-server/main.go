package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"eventhub/internal/events"
	"eventhub/internal/metrics"
	"eventhub/internal/notify"
	"eventhub/internal/schedule"
	"eventhub/internal/scraper"
	"eventhub/internal/store"
	synchub "eventhub/internal/sync"
	"eventhub/pkg/utils"
)

func main() {
	log := utils.NewLogger("api-server", "info")
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = utils.NewLogger("api-server", cfg.Log.Level)

	st, err := store.Open(cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("open store")
	}
	defer func() { _ = store.Close(st) }()

	pipeline, err := scraper.NewPipelineFromConfig(cfg, st, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build pipeline")
	}

	bus := evbus.New()
	svc := events.NewService(st, pipeline, bus, log)
	svc.RunTimeout = cfg.Ingest.RunTimeout

	hub := synchub.NewHub(log)
	notifySrv := notify.NewServer(cfg.Sync.UDPAddr, notify.NewRegistry(), log)
	m := metrics.New()
	for _, attach := range []func(evbus.Bus) error{hub.Attach, notifySrv.Attach, m.Attach} {
		if err := attach(bus); err != nil {
			log.Fatal().Err(err).Msg("subscribe to bus")
		}
	}

	router := newRouter(cfg, svc, hub, m, log)

	sched := schedule.New(log)
	sched.AddTask(schedule.Task{
		Name:         "refresh",
		InitialDelay: cfg.Ingest.RefreshInterval,
		Interval:     cfg.Ingest.RefreshInterval,
		Timeout:      cfg.Ingest.RunTimeout,
		Do: func(ctx context.Context) error {
			_, err := svc.Refresh(ctx)
			return err
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := synchub.NewServer(cfg.Sync.TCPAddr, hub).Run(ctx); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := notifySrv.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http api listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sched.Start()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}
	stop()

	log.Info().Msg("shutting down servers")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	wg.Wait()
	log.Info().Msg("servers stopped")
}

func newRouter(cfg *utils.Config, svc *events.Service, hub *synchub.Hub, m *metrics.Metrics, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestLogger(log), gin.Recovery(), cors())
	_ = router.SetTrustedProxies(cfg.HTTP.TrustedProxies)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": cfg.Store.Driver})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := svc.Ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"store_error": err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"store":       "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	router.GET("/debug", func(c *gin.Context) {
		stats := hub.Stats()
		c.JSON(http.StatusOK, gin.H{
			"store":            cfg.Store.Driver,
			"upstream":         cfg.Upstream.Kind,
			"refresh_interval": cfg.Ingest.RefreshInterval.String(),
			"tcp_clients":      stats.TCPClients,
			"ws_clients":       stats.WSClients,
		})
	})

	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/ws", synchub.WSHandler(hub))

	events.NewHandler(svc).RegisterRoutes(router.Group("/api"))

	if cfg.HTTP.StaticDir != "" {
		if _, err := os.Stat(cfg.HTTP.StaticDir); err == nil {
			router.NoRoute(gin.WrapH(http.FileServer(http.Dir(cfg.HTTP.StaticDir))))
		}
	}
	return router
}

// cors allows any origin.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}
