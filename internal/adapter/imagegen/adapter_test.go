package imagegen

import (
	"TraderBot/internal/ai"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
)

var fakeJPEG = []byte{0xff, 0xd8, 0xff, 0xe0, 'f', 'o', 'x', 0xff, 0xd9}

func newAdapter(t *testing.T, h http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := Config{Model: "black-forest-labs/FLUX.1-schnell-Free", Size: 1792, Steps: 4}
	return New(ai.NewTogetherClient(srv.URL, "key", 0), cfg, zaptest.NewLogger(t).Sugar())
}

func imagesResponse(b64 string) []byte {
	b, _ := json.Marshal(map[string]any{
		"created": 1,
		"data":    []map[string]any{{"b64_json": b64}},
	})
	return b
}

func TestGenerateRequestAndDecode(t *testing.T) {
	var got map[string]any
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/images/generations") {
			t.Errorf("path = %q, want .../images/generations", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(imagesResponse(base64.StdEncoding.EncodeToString(fakeJPEG)))
	})

	data, err := a.Generate(context.Background(), "a red fox")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.Equal(data, fakeJPEG) {
		t.Errorf("data = %v, want %v", data, fakeJPEG)
	}

	want := map[string]any{
		"prompt":          "a red fox",
		"model":           "black-forest-labs/FLUX.1-schnell-Free",
		"n":               float64(1),
		"response_format": "b64_json",
		"width":           float64(1792),
		"height":          float64(1792),
		"steps":           float64(4),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request body (-want +got):\n%s", diff)
	}
}

func TestGenerateFailures(t *testing.T) {
	tests := map[string]struct {
		status int
		body   []byte
	}{
		"missing data":   {http.StatusOK, []byte(`{"created":1,"data":[]}`)},
		"empty b64":      {http.StatusOK, imagesResponse("")},
		"invalid base64": {http.StatusOK, imagesResponse("%%%not-base64%%%")},
		"server error":   {http.StatusInternalServerError, []byte("boom")},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				w.Write(tc.body)
			})
			data, err := a.Generate(context.Background(), "a red fox")
			if err == nil {
				t.Fatalf("Generate returned %d bytes, want error", len(data))
			}
			if data != nil {
				t.Errorf("data = %v, want nil", data)
			}
		})
	}
}

func TestGenerateEmptyPromptSkipsAPI(t *testing.T) {
	var calls atomic.Int32
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	if _, err := a.Generate(context.Background(), "   "); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("err = %v, want ErrEmptyPrompt", err)
	}
	if calls.Load() != 0 {
		t.Errorf("API called %d times, want 0", calls.Load())
	}
}
