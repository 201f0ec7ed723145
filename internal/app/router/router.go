package router

import (
	"TraderBot/internal/service/image"
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Фиксированные ответы пользователю.
const (
	ImageUnavailableReply = "Генерация изображения временно недоступна."
	UnknownLanguageReply  = "Не удалось определить язык сообщения."
)

// Route: результат классификации входящего текста.
type Route int

const (
	RouteUnknown Route = iota
	RouteChat
	RouteImage
)

func (r Route) String() string {
	switch r {
	case RouteChat:
		return "chat"
	case RouteImage:
		return "image"
	default:
		return "unknown"
	}
}

var (
	cyrillicRe = regexp.MustCompile(`^[а-яА-ЯёЁ]`)
	latinRe    = regexp.MustCompile(`^[a-zA-Z]`)
)

// Classify определяет маршрут по первому символу уже обрезанного текста.
// Для RouteChat arg содержит код языка ответа, для RouteImage промпт.
func Classify(text string) (route Route, arg string) {
	switch {
	case cyrillicRe.MatchString(text):
		return RouteChat, "ru"
	case latinRe.MatchString(text):
		// латиница всегда отвечается на uz, определения языка нет
		return RouteChat, "uz"
	case strings.HasPrefix(text, ".") || strings.HasPrefix(text, "/"):
		return RouteImage, strings.TrimSpace(text[1:])
	default:
		return RouteUnknown, ""
	}
}

type ChatReplier interface {
	Reply(ctx context.Context, text, lang string) string
}

type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (image.Result, bool)
}

// Reply: ровно один ответ на входящее сообщение: либо текст, либо изображение.
type Reply struct {
	Text  string
	Image *image.Result
}

type Router struct {
	chat   ChatReplier
	images ImageGenerator
	logger *zap.SugaredLogger
}

func New(chat ChatReplier, images ImageGenerator, logger *zap.SugaredLogger) *Router {
	return &Router{chat: chat, images: images, logger: logger}
}

// Handle классифицирует текст и вызывает не более одного адаптера.
func (r *Router) Handle(ctx context.Context, text string) Reply {
	text = strings.TrimSpace(text)
	route, arg := Classify(text)
	r.logger.Infow("Входящее сообщение", "route", route.String(), "len", len(text))

	switch route {
	case RouteChat:
		return Reply{Text: r.chat.Reply(ctx, text, arg)}
	case RouteImage:
		res, ok := r.images.Generate(ctx, arg)
		if !ok {
			return Reply{Text: ImageUnavailableReply}
		}
		return Reply{Image: &res}
	default:
		return Reply{Text: UnknownLanguageReply}
	}
}
