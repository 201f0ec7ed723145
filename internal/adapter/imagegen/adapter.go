package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

var (
	ErrEmptyPrompt = errors.New("imagegen: empty prompt")
	ErrNoImage     = errors.New("imagegen: no b64_json image in response")
)

type Config struct {
	Model string
	Size  int // ширина и высота, пикселей
	Steps int
}

// Adapter запрашивает одну картинку у OpenAI-совместимого API генерации изображений (Together).
type Adapter struct {
	client *openai.Client
	cfg    Config
	logger *zap.SugaredLogger
}

func New(client *openai.Client, cfg Config, logger *zap.SugaredLogger) *Adapter {
	return &Adapter{client: client, cfg: cfg, logger: logger}
}

// Generate запрашивает одно изображение в формате b64_json и возвращает декодированные байты.
func (a *Adapter) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	params := openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(a.cfg.Model),
		N:              openai.Int(1),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	}
	// width/height/steps не входят в схему OpenAI, Together принимает их в теле запроса
	extra := []option.RequestOption{
		option.WithJSONSet("width", a.cfg.Size),
		option.WithJSONSet("height", a.cfg.Size),
		option.WithJSONSet("steps", a.cfg.Steps),
	}

	start := time.Now()
	resp, err := a.client.Images.Generate(ctx, params, extra...)
	dur := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	a.logger.Infow("Ответ генерации изображения получен", "duration", dur.String(), "images", len(resp.Data))

	if len(resp.Data) == 0 || strings.TrimSpace(resp.Data[0].B64JSON) == "" {
		return nil, ErrNoImage
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("imagegen: base64 decode: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	return data, nil
}
