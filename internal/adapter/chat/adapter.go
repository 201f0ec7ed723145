package chat

import (
	"TraderBot/internal/ai"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// Тексты, которые уходят пользователю вместо ответа модели.
const (
	EmptyReply       = "Ответ от помощника пустой."
	statusErrorReply = "Ошибка: "
	requestErrorText = "Ошибка при запросе к Together API: %v"
)

type Config struct {
	Model        string
	Temperature  float64
	SystemPrompt string // {lang} заменяется на код языка ответа
}

type Adapter struct {
	client *openai.Client
	cfg    Config
	logger *zap.SugaredLogger
}

// New создаёт адаптер чат-модели.
func New(client *openai.Client, cfg Config, logger *zap.SugaredLogger) *Adapter {
	return &Adapter{client: client, cfg: cfg, logger: logger}
}

// Reply отправляет один запрос chat completions и возвращает текст для пользователя.
// Ошибки не возвращаются: они превращаются в текст ответа.
func (a *Adapter) Reply(ctx context.Context, text string, lang string) string {
	system := strings.ReplaceAll(a.cfg.SystemPrompt, "{lang}", lang)
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(a.cfg.Temperature),
	}

	start := time.Now()
	a.logger.Infow("Запрос в Together API...", "model", a.cfg.Model, "lang", lang)
	resp, err := a.client.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		var se *ai.StatusError
		if errors.As(err, &se) {
			a.logger.Warnw("Together API вернул ошибку", "duration", dur.String(), "status", se.StatusCode, "body", se.Body)
			return statusErrorReply + se.Body
		}
		a.logger.Errorw("Ошибка при запросе к Together API", "duration", dur.String(), "error", err)
		return fmt.Sprintf(requestErrorText, err)
	}
	a.logger.Infow("Ответ Together API получен", "duration", dur.String(), "choices", len(resp.Choices))

	if len(resp.Choices) == 0 {
		return EmptyReply
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return EmptyReply
	}
	return content
}
