package main

import (
	"TraderBot/internal/adapter/chat"
	"TraderBot/internal/adapter/imagegen"
	"TraderBot/internal/adapter/telegram"
	"TraderBot/internal/ai"
	"TraderBot/internal/app/router"
	"TraderBot/internal/config"
	"TraderBot/internal/server"
	"TraderBot/internal/service/image"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.DebugMode)
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, sugar); err != nil {
		sugar.Errorw("Бот остановлен с ошибкой", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	sugar.Infow("Бот остановлен")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	logger.Infow("Starting app",
		"DebugMode", cfg.DebugMode,
		"transport", cfg.Telegram.Transport,
		"image_delivery", cfg.Image.Delivery,
		"chat_model", cfg.Chat.Model,
		"image_model", cfg.Image.Model,
	)

	chatAdapter := chat.New(
		ai.NewTogetherClient(cfg.Chat.BaseURL, cfg.Chat.APIKey, cfg.APITimeout),
		chat.Config{Model: cfg.Chat.Model, Temperature: cfg.Chat.Temperature, SystemPrompt: cfg.Chat.SystemPrompt},
		logger,
	)
	imageAdapter := imagegen.New(
		ai.NewTogetherClient(cfg.Image.BaseURL, cfg.Image.APIKey, cfg.APITimeout),
		imagegen.Config{Model: cfg.Image.Model, Size: cfg.Image.Size, Steps: cfg.Image.Steps},
		logger,
	)

	var store *image.Store
	if cfg.Image.Delivery == config.DeliveryDisk {
		s, err := image.NewStore(cfg.Image.OutputDir)
		if err != nil {
			return fmt.Errorf("image store: %w", err)
		}
		store = s
		if cfg.Image.TTL > 0 {
			go image.NewCleaner(logger).Run(ctx, store.Dir(), cfg.Image.TTL, 0)
		}
	}
	images := image.NewService(imageAdapter, store, logger)
	rt := router.New(chatAdapter, images, logger)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	api.Debug = cfg.DebugMode
	logger.Infow("Авторизован в Telegram", "username", api.Self.UserName)
	bot := telegram.New(api, rt, cfg.Workers, logger)

	srvCfg := server.Config{
		Addr:         cfg.HTTP.Addr,
		WriteTimeout: cfg.APITimeout + 30*time.Second,
	}
	if cfg.Telegram.Transport == config.TransportWebhook {
		srvCfg.Webhook = bot
	}
	srv := server.New(srvCfg, images, logger)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	defer func() { _ = srv.Stop(context.WithoutCancel(ctx)) }()

	switch cfg.Telegram.Transport {
	case config.TransportWebhook:
		if err := bot.RegisterWebhook(cfg.Telegram.WebhookURL); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	case config.TransportPolling:
		if err := bot.DeleteWebhook(); err != nil {
			logger.Warnw("Не удалось снять вебхук перед polling", "error", err)
		}
		if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unknown transport %q", cfg.Telegram.Transport)
	}
}
