package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Способ доставки сгенерированного изображения.
const (
	DeliveryMemory = "memory" // байты изображения отдаются вызывающему напрямую
	DeliveryDisk   = "disk"   // изображение сохраняется в OutputDir, отдаётся путь к файлу
)

// Способ получения обновлений Telegram.
const (
	TransportPolling = "polling"
	TransportWebhook = "webhook"
)

// DefaultSystemPrompt: системная инструкция ассистента, {lang} заменяется на код языка ответа.
const DefaultSystemPrompt = "Ты — Trader, дружелюбный помощник. Отвечай кратко и информативно. Всегда используй {lang} язык."

type Config struct {
	DebugMode bool `env:"DEBUG_MODE"` //Режим дебага

	Telegram TelegramConfig
	Chat     ChatConfig
	Image    ImageConfig
	HTTP     HTTPConfig

	APITimeout time.Duration `env:"API_TIMEOUT"` // Таймаут одного запроса к внешним API (чат и картинки)
	Workers    int           `env:"WORKERS"`     // Сколько обновлений обрабатывается параллельно в режиме polling
}

// TelegramConfig параметры бота.
type TelegramConfig struct {
	Token      string `env:"TELEGRAM_BOT_TOKEN"` // Токен бота, обязателен
	Transport  string `env:"TRANSPORT"`          // polling|webhook
	WebhookURL string `env:"WEBHOOK_URL"`        // Публичный URL для режима webhook, напр. https://example.com/webhook
}

// ChatConfig параметры чат-модели (Together, OpenAI-совместимый API).
type ChatConfig struct {
	APIKey       string  `env:"TOGETHER_API_KEY"`  // Ключ Together API, обязателен
	BaseURL      string  `env:"TOGETHER_BASE_URL"` // Базовый URL OpenAI-совместимого API
	Model        string  `env:"CHAT_MODEL"`
	Temperature  float64 `env:"CHAT_TEMPERATURE"`
	SystemPrompt string  `env:"SYSTEM_PROMPT"` // Шаблон системной инструкции с плейсхолдером {lang}
}

// ImageConfig параметры генерации изображений.
type ImageConfig struct {
	APIKey    string        `env:"IMAGE_API_KEY"`  // Если пусто, используется TOGETHER_API_KEY
	BaseURL   string        `env:"IMAGE_BASE_URL"` // Если пусто, используется TOGETHER_BASE_URL
	Model     string        `env:"IMAGE_MODEL"`
	Size      int           `env:"IMAGE_SIZE"`  // Ширина и высота в пикселях
	Steps     int           `env:"IMAGE_STEPS"` // Количество шагов инференса
	Delivery  string        `env:"IMAGE_DELIVERY"`
	OutputDir string        `env:"IMAGES_OUTPUT_DIR"` // Папка для режима disk
	TTL       time.Duration `env:"IMAGES_TTL"`        // 0: файлы никогда не удаляются
}

// HTTPConfig параметры HTTP-сервера (/generate, /healthz, /webhook).
type HTTPConfig struct {
	Addr string `env:"HTTP_ADDR"`
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode: false,
		Telegram: TelegramConfig{
			Transport: TransportPolling,
		},
		Chat: ChatConfig{
			BaseURL:      "https://api.together.xyz/v1",
			Model:        "mistralai/Mixtral-8x7B-Instruct-v0.1",
			Temperature:  0.2,
			SystemPrompt: DefaultSystemPrompt,
		},
		Image: ImageConfig{
			Model:     "black-forest-labs/FLUX.1-schnell-Free",
			Size:      1792,
			Steps:     4,
			Delivery:  DeliveryMemory,
			OutputDir: "generated_images",
		},
		HTTP: HTTPConfig{
			Addr: ":5000",
		},
		APITimeout: 2 * time.Minute,
		Workers:    8,
	}
}

// Load загружает конфигурацию приложения: дефолты, затем .env, окружение и флаги из args.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("bot", flag.ContinueOnError)
	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага")
	fs.StringVar(&cfg.Telegram.Transport, "transport", cfg.Telegram.Transport, "способ получения обновлений: polling|webhook")
	fs.StringVar(&cfg.Telegram.WebhookURL, "webhook-url", cfg.Telegram.WebhookURL, "публичный URL вебхука (режим webhook)")
	fs.StringVar(&cfg.Chat.BaseURL, "together-base-url", cfg.Chat.BaseURL, "базовый URL Together API")
	fs.StringVar(&cfg.Chat.Model, "chat-model", cfg.Chat.Model, "модель для ответов в чате")
	fs.Float64Var(&cfg.Chat.Temperature, "chat-temperature", cfg.Chat.Temperature, "температура сэмплирования")
	fs.StringVar(&cfg.Image.BaseURL, "image-base-url", cfg.Image.BaseURL, "базовый URL API генерации изображений")
	fs.StringVar(&cfg.Image.Model, "image-model", cfg.Image.Model, "модель генерации изображений")
	fs.IntVar(&cfg.Image.Size, "image-size", cfg.Image.Size, "ширина и высота изображения в пикселях")
	fs.IntVar(&cfg.Image.Steps, "image-steps", cfg.Image.Steps, "количество шагов инференса")
	fs.StringVar(&cfg.Image.Delivery, "image-delivery", cfg.Image.Delivery, "доставка изображения: memory|disk")
	fs.StringVar(&cfg.Image.OutputDir, "images-output-dir", cfg.Image.OutputDir, "папка для сохранения изображений (режим disk)")
	fs.DurationVar(&cfg.Image.TTL, "images-ttl", cfg.Image.TTL, "через сколько удалять сохранённые изображения, 0 значит никогда")
	fs.StringVar(&cfg.HTTP.Addr, "http-addr", cfg.HTTP.Addr, "адрес HTTP-сервера")
	fs.DurationVar(&cfg.APITimeout, "api-timeout", cfg.APITimeout, "таймаут запроса к внешним API")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "максимум параллельно обрабатываемых обновлений")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Ключ и URL генерации изображений по умолчанию совпадают с чатом
	if strings.TrimSpace(cfg.Image.APIKey) == "" {
		cfg.Image.APIKey = cfg.Chat.APIKey
	}
	if strings.TrimSpace(cfg.Image.BaseURL) == "" {
		cfg.Image.BaseURL = cfg.Chat.BaseURL
	}
	cfg.Telegram.Transport = strings.ToLower(strings.TrimSpace(cfg.Telegram.Transport))
	cfg.Image.Delivery = strings.ToLower(strings.TrimSpace(cfg.Image.Delivery))
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет, что секреты заданы и режимы известны. Ошибка здесь останавливает запуск.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is not set"))
	}
	if strings.TrimSpace(c.Chat.APIKey) == "" {
		errs = append(errs, errors.New("TOGETHER_API_KEY is not set"))
	}
	if strings.TrimSpace(c.Image.APIKey) == "" {
		errs = append(errs, errors.New("IMAGE_API_KEY is not set"))
	}
	switch c.Telegram.Transport {
	case TransportPolling:
	case TransportWebhook:
		if strings.TrimSpace(c.Telegram.WebhookURL) == "" {
			errs = append(errs, errors.New("WEBHOOK_URL is required for webhook transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q; use polling|webhook", c.Telegram.Transport))
	}
	switch c.Image.Delivery {
	case DeliveryMemory:
	case DeliveryDisk:
		if strings.TrimSpace(c.Image.OutputDir) == "" {
			errs = append(errs, errors.New("IMAGES_OUTPUT_DIR is required for disk delivery"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown image delivery %q; use memory|disk", c.Image.Delivery))
	}
	if c.Image.Size <= 0 {
		errs = append(errs, fmt.Errorf("invalid image size %d", c.Image.Size))
	}
	if c.Image.Steps <= 0 {
		errs = append(errs, fmt.Errorf("invalid image steps %d", c.Image.Steps))
	}
	return errors.Join(errs...)
}
