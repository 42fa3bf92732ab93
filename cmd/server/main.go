package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/crypto/bcrypt"

	echoapi "github.com/onegate-dev/onegate/api/echo"
	"github.com/onegate-dev/onegate/config"
	"github.com/onegate-dev/onegate/domain"
	"github.com/onegate-dev/onegate/flow"
	"github.com/onegate-dev/onegate/internal/auth"
	"github.com/onegate-dev/onegate/log"
	"github.com/onegate-dev/onegate/mongodb"
	"github.com/onegate-dev/onegate/registry"
	"github.com/onegate-dev/onegate/storage/memory"
	"github.com/onegate-dev/onegate/token"
	"github.com/onegate-dev/onegate/tracing"
)

var (
	appLogger      log.Logger
	httpServer     *http.Server
	tracerProvider *sdktrace.TracerProvider
)

// repositories bundles the credential stores the services are wired with.
type repositories struct {
	clients domain.ClientRepository
	codes   domain.AuthCodeRepository
	refresh domain.RefreshTokenRepository
	users   domain.UserRepository
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	appLogger = log.Setup(cfg.LogLevel, cfg.LogPretty)
	ctx := context.Background()

	appLogger.Info(ctx, "Starting onegate authorization server", map[string]interface{}{
		"http_port": cfg.HTTPPort,
		"issuer":    cfg.Issuer,
		"storage":   cfg.Storage,
	})

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize TracerProvider", err)
	}
	tracerProvider = tp

	// Credential stores
	repos, err := buildRepositories(ctx, cfg)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize storage", err)
	}

	// Pending authorizations live in Redis when configured, otherwise in
	// process memory.
	var flowStore flow.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			appLogger.Fatal(ctx, "Failed to connect to Redis", err)
		}
		flowStore = flow.NewRedisStore(rdb, "onegate")
	} else {
		memStore := flow.NewMemoryStore()
		defer memStore.Close()
		flowStore = memStore
	}

	passwordHasher := auth.NewBcryptPasswordHasher(bcrypt.DefaultCost)

	if err := bootstrapOperator(ctx, cfg, repos.users, passwordHasher); err != nil {
		appLogger.Fatal(ctx, "Failed to bootstrap operator identity", err)
	}

	signingKey, err := loadSigningKey(cfg)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to load signing key", err)
	}

	// Services
	registrySvc := registry.NewService(repos.clients, passwordHasher)
	coordinator := flow.NewCoordinator(repos.clients, repos.codes, repos.users, flowStore, passwordHasher, cfg.ConsentURL)
	issuer := token.NewIssuer(repos.clients, repos.codes, repos.refresh, signingKey, passwordHasher, cfg.Issuer)
	issuer.RevokeLineageOnReuse = cfg.RefreshReuseRevokesLineage

	// HTTP API
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	oauthAPI := echoapi.NewOAuth2API(registrySvc, coordinator, issuer, signingKey, cfg.Issuer)
	oauthAPI.RegisterRoutes(e)

	httpServer = &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info(ctx, fmt.Sprintf("HTTP server listening on port %s", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(ctx, "Failed to start HTTP server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit

	appLogger.Info(ctx, fmt.Sprintf("Received signal: %v. Shutting down server...", receivedSignal))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown error", err)
	}

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err)
		}
	}

	if cfg.Storage == "mongodb" {
		mongodb.CloseMongoDB(shutdownCtx)
	}

	appLogger.Info(shutdownCtx, "Server gracefully stopped.")
}

func buildRepositories(ctx context.Context, cfg *config.ServerConfig) (*repositories, error) {
	if cfg.Storage == "memory" {
		store := memory.NewStore()
		return &repositories{clients: store, codes: store, refresh: store, users: store}, nil
	}

	if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
		return nil, err
	}
	db := mongodb.GetDB()

	clients, err := mongodb.NewClientRepository(ctx, db)
	if err != nil {
		return nil, err
	}
	codes, err := mongodb.NewAuthCodeRepository(ctx, db)
	if err != nil {
		return nil, err
	}
	refresh, err := mongodb.NewRefreshTokenRepository(ctx, db)
	if err != nil {
		return nil, err
	}
	users, err := mongodb.NewUserRepository(ctx, db)
	if err != nil {
		return nil, err
	}
	return &repositories{clients: clients, codes: codes, refresh: refresh, users: users}, nil
}

// bootstrapOperator upserts the single operator identity from configuration.
func bootstrapOperator(ctx context.Context, cfg *config.ServerConfig, users domain.UserRepository, hasher auth.PasswordHasher) error {
	passwordHash := cfg.OperatorPasswordHash
	if passwordHash == "" {
		hashed, err := hasher.Hash(cfg.OperatorPassword)
		if err != nil {
			return err
		}
		passwordHash = hashed
	}

	return users.EnsureUser(ctx, &domain.User{
		Email:        cfg.OperatorEmail,
		PasswordHash: passwordHash,
	})
}

func loadSigningKey(cfg *config.ServerConfig) (*token.SigningKey, error) {
	if cfg.SigningKeyFile != "" {
		return token.LoadSigningKey(cfg.SigningKeyFile)
	}
	// No key configured. Generate an ephemeral one; tokens do not survive a
	// restart in this mode.
	appLogger.Warn(context.Background(), "SIGNING_KEY_FILE not set, generating an ephemeral signing key")
	return token.GenerateSigningKey()
}
