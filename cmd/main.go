package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/samuelweirer/psa-putzi-sub000/config"
	"github.com/samuelweirer/psa-putzi-sub000/db"
	"github.com/samuelweirer/psa-putzi-sub000/internal/auth/handler"
	"github.com/samuelweirer/psa-putzi-sub000/internal/auth/password"
	repo "github.com/samuelweirer/psa-putzi-sub000/internal/auth/repository/postgres"
	"github.com/samuelweirer/psa-putzi-sub000/internal/auth/service"
	"github.com/samuelweirer/psa-putzi-sub000/internal/mail"
	"github.com/samuelweirer/psa-putzi-sub000/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := zap.NewProduction()
	if cfg.Env == "development" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	dbPool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient, err := db.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer redisClient.Close()

	userRepo := repo.NewPostgresRepository(dbPool)

	tokenService := service.NewTokenService(
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessExpiry(), cfg.RefreshExpiry(),
		cfg.JWTIssuer, cfg.JWTAudience,
	)

	limiter := ratelimit.New(redisClient, logger)
	loginLimiter := ratelimit.NewLoginLimiter(limiter, cfg.LoginWindow(), cfg.LoginRateMax)
	apiLimiter := ratelimit.NewAPILimiter(limiter, cfg.APIWindow(), cfg.APIRateMax)

	policy := password.Policy{
		MinLength:      cfg.PasswordMinLength,
		RequireUpper:   cfg.PasswordRequireUpper,
		RequireLower:   cfg.PasswordRequireLower,
		RequireDigit:   cfg.PasswordRequireDigit,
		RequireSpecial: cfg.PasswordRequireSpecial,
	}

	userService := service.NewUserService(
		userRepo,
		tokenService,
		password.NewHasher(cfg.BcryptCost),
		policy,
		service.NewMfaService(cfg.TOTPIssuer, cfg.TOTPSkewSteps),
		service.NewLockoutPolicy(userRepo, cfg.LockoutMaxAttempts, cfg.LockoutWindow()),
		loginLimiter,
		mail.NewLogMailer(logger),
		logger,
		service.UserServiceConfig{
			AccessExpirySeconds: cfg.AccessExpirySeconds(),
			ResetTokenTTL:       cfg.ResetExpiry(),
			MfaSetupTTL:         cfg.MfaSetupExpiry(),
			RecoveryCodeCount:   cfg.RecoveryCodeCount,
		},
	)

	authHandler := handler.NewAuthHandler(userService, tokenService)

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler, apiLimiter)

	logger.Info("listening", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
