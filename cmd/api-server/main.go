package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"phimhub/internal/auth"
	"phimhub/internal/catalog"
	"phimhub/internal/devicesync"
	"phimhub/internal/enrich"
	"phimhub/internal/history"
	"phimhub/internal/library"
	"phimhub/internal/notify"
	"phimhub/internal/provider"
	"phimhub/internal/reviews"
	"phimhub/internal/watchparty"
	"phimhub/pkg/database"
	"phimhub/pkg/utils"
)

func main() {
	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	router := gin.Default()

	// Optional: avoid “trusted all proxies” warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Device sync (WS + TCP)
	hub := devicesync.NewHub()
	router.GET("/ws", devicesync.WSHandler(hub, tokenSvc))
	tcpSrv := devicesync.NewServer(":7070", hub)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Catalog (public): providers in priority order, merged per request.
	provCfg := utils.LoadProviderConfig()
	agg := catalog.NewAggregator(provCfg.FetchTimeout,
		provider.NewKKPhim(provCfg.KKPhimBaseURL),
		provider.NewOPhim(provCfg.OPhimBaseURL),
		provider.NewNguonC(provCfg.NguonCBaseURL),
	)
	if provCfg.TMDBAPIKey != "" {
		agg.Enricher = enrich.NewClient(provCfg.TMDBAPIKey)
	}
	// New-episode push over UDP
	registry := notify.NewRegistry()
	notifySrv := notify.NewServer(":9091", registry, nil)
	go func() {
		if err := notifySrv.Run(); err != nil {
			log.Printf("udp notify server stopped: %v", err)
		}
	}()

	catalogRepo := catalog.NewRepo(db)
	catalogHandler := catalog.NewHandler(agg, catalogRepo)
	catalogHandler.Notifier = notifySrv
	catalogHandler.RegisterRoutes(router)

	// Watch-party rooms keyed by movie slug
	party := watchparty.NewHub(50)
	router.GET("/party", watchparty.WSHandler(party))
	router.GET("/party/history", watchparty.HistoryHandler(party))

	// Protected routes
	protected := router.Group("/users")
	protected.Use(auth.AuthMiddleware(tokenSvc, authRepo))

	historyRepo := history.NewRepo(db)
	historyHandler := history.NewHandler(historyRepo, hub)
	historyHandler.RegisterRoutes(protected)

	libRepo := library.NewRepo(db)
	libHandler := library.NewHandler(libRepo, hub)
	libHandler.RegisterRoutes(protected)

	reviewRepo := reviews.NewRepo(db)
	reviewHandler := reviews.NewHandler(reviewRepo)
	reviewHandler.RegisterPublicRoutes(router)
	reviewHandler.RegisterProtectedRoutes(protected)

	httpSrv := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("HTTP API server listening on :8080")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}
