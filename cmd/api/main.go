package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"netpanel/internal/config"
	"netpanel/internal/database"
	"netpanel/internal/domain"
	"netpanel/internal/middleware"
	"netpanel/internal/modules/auth"
	jwtsvc "netpanel/internal/pkg/jwt"
	"netpanel/internal/pkg/keyring"
	"netpanel/internal/pkg/keystore"
	"netpanel/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.RefreshToken{}); err != nil {
		log.Fatal(err)
	}

	sealer, err := keystore.NewAESSealer(cfg.KeyProtectionSecret)
	if err != nil {
		log.Fatal(err)
	}
	keyStore, err := keystore.NewFileStore(cfg.KeyDirectory, sealer)
	if err != nil {
		log.Fatal(err)
	}

	keys := keyring.NewManager(keyStore, cfg.KeyRotationLifetime)
	// A failed initialization leaves the service up but degraded: /health
	// reports it and signing requests fail until a later check succeeds.
	if err := keys.InitializeOrRotate(); err != nil {
		log.Printf("keyring: initialization failed, starting degraded: %v", err)
	}

	tokens := jwtsvc.New(keys, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTokenTTL)

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewRefreshTokenRepository(db)

	authService := auth.NewService(userRepo, sessionRepo, tokens, auth.Options{
		RefreshTTL:       cfg.RefreshTokenTTL,
		LogoutAllDevices: cfg.LogoutAllDevices,
		RevokeAllOnReuse: cfg.RevokeAllOnReuse,
	})
	authHandler := auth.NewHandler(authService, auth.CookieConfig{
		Name:   cfg.CookieName,
		Path:   cfg.CookiePath,
		Secure: cfg.CookieSecure,
		MaxAge: cfg.RefreshTokenTTL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go keyring.NewScheduler(keys, cfg.RotationInterval).Run(ctx)
	go auth.NewSweeper(authService, cfg.SweepInterval, cfg.SweepGracePeriod).Run(ctx)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.GET("/health", func(c *gin.Context) {
		if !keys.Healthy() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "signing_key": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "signing_key": true})
	})

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.Auth(tokens))
		{
			authHandler.RegisterProtectedRoutes(protected)
		}
	}

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()
	log.Printf("listening on %s", cfg.ListenAddr)

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
