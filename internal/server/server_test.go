package server

import (
	"TraderBot/internal/service/image"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type fakeImages struct {
	ok      bool
	result  image.Result
	prompts []string
}

func (f *fakeImages) Generate(_ context.Context, prompt string) (image.Result, bool) {
	f.prompts = append(f.prompts, prompt)
	return f.result, f.ok
}

func newTestServer(t *testing.T, images ImageGenerator, webhook http.Handler) *httptest.Server {
	t.Helper()
	s := New(Config{Addr: "127.0.0.1:0", Webhook: webhook}, images, zaptest.NewLogger(t).Sugar())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) (int, map[string]string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, got
}

func TestGenerate(t *testing.T) {
	tests := map[string]struct {
		images     *fakeImages
		body       string
		wantStatus int
		wantBody   map[string]string
		wantCalls  []string
	}{
		"memory": {
			images:     &fakeImages{ok: true, result: image.Result{Data: []byte("jpeg")}},
			body:       `{"prompt": "a red fox"}`,
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"status": "Image generated"},
			wantCalls:  []string{"a red fox"},
		},
		"disk": {
			images:     &fakeImages{ok: true, result: image.Result{Path: "generated_images/generated_image_1.jpg"}},
			body:       `{"prompt": "a red fox"}`,
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"image_path": "generated_images/generated_image_1.jpg"},
			wantCalls:  []string{"a red fox"},
		},
		"empty object": {
			images:     &fakeImages{ok: true},
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]string{"error": "No prompt provided"},
		},
		"blank prompt": {
			images:     &fakeImages{ok: true},
			body:       `{"prompt": "   "}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]string{"error": "No prompt provided"},
		},
		"invalid json": {
			images:     &fakeImages{ok: true},
			body:       `prompt=fox`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]string{"error": "No prompt provided"},
		},
		"generation failed": {
			images:     &fakeImages{ok: false},
			body:       `{"prompt": "a red fox"}`,
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]string{"error": "Image generation failed"},
			wantCalls:  []string{"a red fox"},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t, tc.images, nil)

			status, body := post(t, ts.URL+"/generate", tc.body)
			if status != tc.wantStatus {
				t.Errorf("status = %d, want %d", status, tc.wantStatus)
			}
			if diff := cmp.Diff(tc.wantBody, body); diff != "" {
				t.Errorf("body (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.wantCalls, tc.images.prompts); diff != "" {
				t.Errorf("generator calls (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerateMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &fakeImages{}, nil)

	resp, err := http.Get(ts.URL + "/generate")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	// генератор, который всегда падает, не влияет на /healthz
	ts := newTestServer(t, &fakeImages{ok: false}, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || string(b) != "OK" {
		t.Errorf("response = %d %q, want 200 OK", resp.StatusCode, b)
	}
}

func TestWebhookRoute(t *testing.T) {
	var hits int
	hook := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("OK"))
	})

	withHook := newTestServer(t, &fakeImages{}, hook)
	resp, err := http.Post(withHook.URL+"/webhook", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || hits != 1 {
		t.Errorf("webhook: status %d, hits %d", resp.StatusCode, hits)
	}

	without := newTestServer(t, &fakeImages{}, nil)
	resp, err = http.Post(without.URL+"/webhook", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("webhook without handler: status %d, want 404", resp.StatusCode)
	}
}

func TestStartStop(t *testing.T) {
	// горутина ListenAndServe пишет в лог уже после Stop
	s := New(Config{Addr: "127.0.0.1:0"}, &fakeImages{}, zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
