package main

import (
	"log/slog"
	"net/http"
	"time"

	"karsaazai/internal/app"
	"karsaazai/internal/config"
	"karsaazai/internal/server"
	"karsaazai/internal/usertoken"
	"karsaazai/internal/util"
	"karsaazai/pkg/ai"
	"karsaazai/pkg/kyc"
	"karsaazai/pkg/storage"
	"karsaazai/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		util.Fatal("failed to load config", "err", err)
	}
	leeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		util.Fatal("failed to parse jwt leeway", "err", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	verifier, err := usertoken.NewVerifier(usertoken.Config{
		JWKSURL:  cfg.AuthJWKSURL,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   leeway,
	})
	if err != nil {
		util.Fatal("failed to init token verifier", "err", err)
	}

	db, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		util.Fatal("failed to init database", "err", err)
	}

	chat, err := ai.NewChatClient(cfg.ChatBaseURL, cfg.ModelAPIKey, cfg.ChatModel)
	if err != nil {
		util.Fatal("failed to init chat client", "err", err)
	}
	inference := ai.NewInferenceClient(cfg.InferenceBaseURL, cfg.ModelAPIKey)

	var media storage.ObjectStore
	if cfg.Minio.Endpoint != "" {
		media, err = storage.NewMinioStore(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL)
		if err != nil {
			util.Fatal("failed to init media store", "err", err)
		}
	}

	appCore, err := app.New(app.Config{
		Store:     db,
		Chat:      chat,
		ChatModel: chat.Model(),
		Inference: inference,
		Translation: ai.TranslationModels{
			EnToUr: cfg.TranslationModelEnUr,
			UrToEn: cfg.TranslationModelUrEn,
		},
		SentimentModel: cfg.SentimentModel,
		CaptionModel:   cfg.CaptionModel,
		OCRModel:       cfg.OCRModel,
		SpeechModel:    cfg.SpeechModel,
		KYC:            kyc.NewClient(cfg.KYCServiceURL),
		Media:          media,
		Debug:          cfg.Debug,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer, err := server.New(server.Config{
		App:                  appCore,
		Store:                db,
		TokenVerifier:        verifier,
		RedisAddr:            cfg.RedisAddr,
		RedisPassword:        cfg.RedisPassword,
		AIRateLimitPerMinute: cfg.AIRateLimitPerMinute,
		TrustedProxies:       cfg.TrustedProxies,
	})
	if err != nil {
		util.Fatal("failed to init server", "err", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
