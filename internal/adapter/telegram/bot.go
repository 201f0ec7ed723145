package telegram

import (
	"TraderBot/internal/app/router"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Имя файла, под которым фото из памяти уходит в Telegram.
const photoFileName = "generated_image.jpg"

// Максимальный размер тела обновления в вебхуке.
const maxUpdateBody = 1 << 20

const usageText = `Я Trader, помощник в чате.

Пишите кириллицей, чтобы получить ответ на русском.
Пишите латиницей, чтобы получить ответ на узбекском.
Начните сообщение с точки, чтобы сгенерировать изображение, например: .рыжая лиса в лесу`

// API: часть tgbotapi.BotAPI, которой пользуется бот.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler отвечает на текст пользователя.
type Handler interface {
	Handle(ctx context.Context, text string) router.Reply
}

type Bot struct {
	api     API
	handler Handler
	workers int
	logger  *zap.SugaredLogger
}

func New(api API, handler Handler, workers int, logger *zap.SugaredLogger) *Bot {
	if workers <= 0 {
		workers = 1
	}
	return &Bot{api: api, handler: handler, workers: workers, logger: logger}
}

// Run получает обновления long polling до отмены ctx.
// Одновременно обрабатывается не больше workers обновлений.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	b.logger.Infow("Бот запущен в режиме polling", "workers", b.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case upd, ok := <-updates:
			if !ok {
				break loop
			}
			g.Go(func() error {
				b.HandleUpdate(gctx, upd)
				return nil
			})
		}
	}

	b.api.StopReceivingUpdates()
	b.logger.Infow("Получение обновлений остановлено, ждём обработки текущих")
	return g.Wait()
}

// RegisterWebhook сообщает Telegram публичный адрес вебхука.
func (b *Bot) RegisterWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("webhook config: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	b.logger.Infow("Вебхук зарегистрирован", "url", url)
	return nil
}

// DeleteWebhook снимает вебхук, иначе long polling получит ошибку 409 от Telegram.
func (b *Bot) DeleteWebhook() error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// ServeHTTP принимает обновление от Telegram (POST /webhook), обрабатывает его и отвечает OK.
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var upd tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBody)).Decode(&upd); err != nil {
		b.logger.Warnw("Некорректное обновление в вебхуке", "error", err)
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	b.HandleUpdate(r.Context(), upd)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// HandleUpdate отправляет не больше одного ответа на текстовое сообщение.
// Не текстовые обновления и неизвестные команды пропускаются.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			b.sendText(chatID, msg.MessageID, usageText)
		default:
			b.logger.Infow("Команда пропущена", "chat_id", chatID, "command", msg.Command())
		}
		return
	}

	b.logger.Infow("Получено сообщение", "chat_id", chatID, "text", msg.Text)
	switch route, _ := router.Classify(strings.TrimSpace(msg.Text)); route {
	case router.RouteChat:
		b.chatAction(chatID, tgbotapi.ChatTyping)
	case router.RouteImage:
		b.chatAction(chatID, tgbotapi.ChatUploadPhoto)
	}

	reply := b.handler.Handle(ctx, msg.Text)
	if reply.Image == nil {
		b.sendText(chatID, msg.MessageID, reply.Text)
		return
	}

	var file tgbotapi.RequestFileData
	if reply.Image.Path != "" {
		file = tgbotapi.FilePath(reply.Image.Path)
	} else {
		file = tgbotapi.FileBytes{Name: photoFileName, Bytes: reply.Image.Data}
	}
	photo := tgbotapi.NewPhoto(chatID, file)
	photo.ReplyToMessageID = msg.MessageID
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Errorw("Не удалось отправить изображение", "chat_id", chatID, "error", err)
		return
	}
	b.logger.Infow("Изображение отправлено пользователю", "chat_id", chatID)
}

func (b *Bot) sendText(chatID int64, replyTo int, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ReplyToMessageID = replyTo
	if _, err := b.api.Send(m); err != nil {
		b.logger.Errorw("Не удалось отправить сообщение", "chat_id", chatID, "error", err)
		return
	}
	b.logger.Infow("Ответ отправлен пользователю", "chat_id", chatID, "len", len(text))
}

// chatAction через Request: ответ sendChatAction не является сообщением.
func (b *Bot) chatAction(chatID int64, action string) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		b.logger.Warnw("Не удалось отправить статус", "chat_id", chatID, "action", action, "error", err)
	}
}
