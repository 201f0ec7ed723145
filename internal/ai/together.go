package ai

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Максимум байт тела ответа с ошибкой, которые сохраняются в StatusError.
const maxErrorBody = 64 << 10

// StatusError описывает ответ API с не-2xx статусом. Body содержит сырое тело ответа как есть.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error: status=%d, body=%s", e.StatusCode, strings.TrimSpace(e.Body))
}

// NewTogetherClient создаёт клиента OpenAI-совместимого API (Together).
// Повторы запросов отключены, не-2xx ответы возвращаются как *StatusError.
func NewTogetherClient(baseURL, apiKey string, timeout time.Duration) *openai.Client {
	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithMiddleware(captureErrorBody),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	client := openai.NewClient(opts...)
	return &client
}

// captureErrorBody сохраняет тело не-2xx ответа до того, как SDK попытается разобрать его как JSON.
func captureErrorBody(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
	resp, err := next(req)
	if err != nil {
		return resp, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	// пустое тело не подменяется статусом
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
}
