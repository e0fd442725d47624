package deepseek

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"whispersub/internal/services"
)

type recordedRequest struct {
	Auth    string
	Payload chatCompletionRequest
}

type fakeServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

// newFakeServer answers each request with respond(n, inputs), where n is the
// 1-based request number and inputs are the texts sent in that request.
func newFakeServer(t *testing.T, respond func(n int, inputs []string, w http.ResponseWriter)) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fs.mu.Lock()
		fs.requests = append(fs.requests, recordedRequest{Auth: r.Header.Get("Authorization"), Payload: payload})
		n := len(fs.requests)
		fs.mu.Unlock()
		respond(n, inputsFromPrompt(t, payload), w)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) count() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.requests)
}

func inputsFromPrompt(t *testing.T, payload chatCompletionRequest) []string {
	t.Helper()
	if len(payload.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(payload.Messages))
		return nil
	}
	_, raw, ok := strings.Cut(payload.Messages[1].Content, "Input JSON:\n")
	if !ok {
		t.Errorf("prompt missing input marker: %q", payload.Messages[1].Content)
		return nil
	}
	var inputs []string
	if err := json.Unmarshal([]byte(raw), &inputs); err != nil {
		t.Errorf("decode prompt inputs: %v", err)
	}
	return inputs
}

func writeContent(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	payload := map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func echoTranslations(t *testing.T, w http.ResponseWriter, inputs []string) {
	out := make([]string, len(inputs))
	for i, in := range inputs {
		out[i] = "T:" + in
	}
	data, _ := json.Marshal(out)
	writeContent(t, w, string(data))
}

func newTestClient(url string, sleeps *[]time.Duration) *Client {
	return NewClient(Config{BaseURL: url, APIKey: "sk-test", Model: "demo"},
		WithSleeper(func(d time.Duration) {
			if sleeps != nil {
				*sleeps = append(*sleeps, d)
			}
		}))
}

func TestTranslateBatchRequestShape(t *testing.T) {
	server := newFakeServer(t, func(_ int, inputs []string, w http.ResponseWriter) {
		echoTranslations(t, w, inputs)
	})
	client := newTestClient(server.URL+"/", nil)

	got, err := client.TranslateBatch(context.Background(), []string{"Hello", "a <b> & c"}, "zh")
	if err != nil {
		t.Fatalf("TranslateBatch: %v", err)
	}
	if len(got) != 2 || got[0] != "T:Hello" || got[1] != "T:a <b> & c" {
		t.Fatalf("unexpected translations: %v", got)
	}
	req := server.requests[0]
	if req.Auth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", req.Auth)
	}
	if req.Payload.Model != "demo" || req.Payload.Temperature != 0.2 {
		t.Fatalf("unexpected payload: %+v", req.Payload)
	}
	if req.Payload.Messages[0].Role != "system" || req.Payload.Messages[0].Content != SystemPrompt {
		t.Fatalf("unexpected system message: %+v", req.Payload.Messages[0])
	}
	user := req.Payload.Messages[1].Content
	if !strings.Contains(user, "Target language: zh\n\n") || !strings.HasPrefix(user, "Translate each item to the target language.") {
		t.Fatalf("unexpected user prompt: %q", user)
	}
}

func TestTranslateBatchStripsCodeFence(t *testing.T) {
	for _, fence := range []string{"```json\n%s\n```", "```\n%s\n```", "  %s  "} {
		server := newFakeServer(t, func(_ int, inputs []string, w http.ResponseWriter) {
			data, _ := json.Marshal([]string{"你好", "世界"})
			writeContent(t, w, fmt.Sprintf(fence, data))
		})
		got, err := newTestClient(server.URL, nil).TranslateBatch(context.Background(), []string{"hello", "world"}, "zh")
		if err != nil {
			t.Fatalf("fence %q: %v", fence, err)
		}
		if got[0] != "你好" || got[1] != "世界" {
			t.Fatalf("fence %q: unexpected %v", fence, got)
		}
	}
}

func TestTranslateBatchCoercesNonStrings(t *testing.T) {
	server := newFakeServer(t, func(_ int, _ []string, w http.ResponseWriter) {
		writeContent(t, w, `["one", 2, true, null, {"a": 1}]`)
	})
	got, err := newTestClient(server.URL, nil).TranslateBatch(context.Background(), []string{"1", "2", "3", "4", "5"}, "en")
	if err != nil {
		t.Fatalf("TranslateBatch: %v", err)
	}
	want := []string{"one", "2", "true", "null", `{"a":1}`}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("item %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestTranslateBatchEmptyInputSkipsRequest(t *testing.T) {
	server := newFakeServer(t, func(_ int, inputs []string, w http.ResponseWriter) {
		echoTranslations(t, w, inputs)
	})
	got, err := newTestClient(server.URL, nil).TranslateBatch(context.Background(), nil, "zh")
	if err != nil {
		t.Fatalf("TranslateBatch: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
	if server.count() != 0 {
		t.Fatalf("expected no requests, got %d", server.count())
	}
}

func TestTranslateBatchSplitsIntoBatches(t *testing.T) {
	server := newFakeServer(t, func(_ int, inputs []string, w http.ResponseWriter) {
		if len(inputs) > BatchSize {
			t.Errorf("batch too large: %d", len(inputs))
		}
		echoTranslations(t, w, inputs)
	})
	texts := make([]string, 45)
	for i := range texts {
		texts[i] = fmt.Sprintf("line %d", i)
	}
	got, err := newTestClient(server.URL, nil).TranslateBatch(context.Background(), texts, "zh")
	if err != nil {
		t.Fatalf("TranslateBatch: %v", err)
	}
	if len(got) != len(texts) {
		t.Fatalf("expected %d results, got %d", len(texts), len(got))
	}
	for i := range texts {
		if got[i] != "T:"+texts[i] {
			t.Fatalf("order not preserved at %d: %q", i, got[i])
		}
	}
	if server.count() != 3 {
		t.Fatalf("expected 3 requests (20+20+5), got %d", server.count())
	}
}

func TestTranslateBatchRetriesThenSucceeds(t *testing.T) {
	server := newFakeServer(t, func(n int, inputs []string, w http.ResponseWriter) {
		if n < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		echoTranslations(t, w, inputs)
	})
	var sleeps []time.Duration
	got, err := newTestClient(server.URL, &sleeps).TranslateBatch(context.Background(), []string{"hi"}, "zh")
	if err != nil {
		t.Fatalf("TranslateBatch: %v", err)
	}
	if got[0] != "T:hi" {
		t.Fatalf("unexpected translation %v", got)
	}
	if server.count() != 3 {
		t.Fatalf("expected 3 attempts, got %d", server.count())
	}
	if len(sleeps) != 2 || sleeps[0] != 2*time.Second || sleeps[1] != 4*time.Second {
		t.Fatalf("unexpected backoff: %v", sleeps)
	}
}

func TestTranslateBatchFailsAfterThreeAttempts(t *testing.T) {
	server := newFakeServer(t, func(n int, _ []string, w http.ResponseWriter) {
		writeContent(t, w, fmt.Sprintf("not json %d %s", n, strings.Repeat("x", 300)))
	})
	var sleeps []time.Duration
	_, err := newTestClient(server.URL, &sleeps).TranslateBatch(context.Background(), []string{"hi"}, "zh")
	if err == nil {
		t.Fatal("expected failure")
	}
	if !errors.Is(err, services.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
	if server.count() != MaxAttempts {
		t.Fatalf("expected %d attempts, got %d", MaxAttempts, server.count())
	}
	if len(sleeps) != MaxAttempts-1 {
		t.Fatalf("expected %d sleeps, got %v", MaxAttempts-1, sleeps)
	}
	msg := err.Error()
	if !strings.Contains(msg, "not json 3") {
		t.Fatalf("expected final attempt's error, got %q", msg)
	}
	if strings.Contains(msg, strings.Repeat("x", 200)) || !strings.Contains(msg, "...") {
		t.Fatalf("snippet should be truncated to 200 characters: %q", msg)
	}
}

func TestTranslateBatchLengthMismatchIsRetried(t *testing.T) {
	server := newFakeServer(t, func(n int, inputs []string, w http.ResponseWriter) {
		if n == 1 {
			writeContent(t, w, `["only one"]`)
			return
		}
		echoTranslations(t, w, inputs)
	})
	got, err := newTestClient(server.URL, nil).TranslateBatch(context.Background(), []string{"a", "b"}, "zh")
	if err != nil {
		t.Fatalf("TranslateBatch: %v", err)
	}
	if len(got) != 2 || server.count() != 2 {
		t.Fatalf("expected retry after length mismatch, got %v after %d requests", got, server.count())
	}
}

func TestTranslateBatchMissingContentIsMalformed(t *testing.T) {
	server := newFakeServer(t, func(_ int, _ []string, w http.ResponseWriter) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})
	_, err := newTestClient(server.URL, nil).TranslateBatch(context.Background(), []string{"a"}, "zh")
	if !errors.Is(err, services.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestTranslateBatchRequiresConfiguration(t *testing.T) {
	tests := []Config{
		{BaseURL: "", APIKey: "k"},
		{BaseURL: "http://localhost", APIKey: ""},
	}
	for _, cfg := range tests {
		_, err := NewClient(cfg).TranslateBatch(context.Background(), []string{"a"}, "zh")
		if !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("config %+v: expected configuration error, got %v", cfg, err)
		}
	}
}

func TestTranslateBatchStopsOnCancel(t *testing.T) {
	server := newFakeServer(t, func(_ int, _ []string, w http.ResponseWriter) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(Config{BaseURL: server.URL, APIKey: "k"}, WithSleeper(func(time.Duration) { cancel() }))
	_, err := client.TranslateBatch(ctx, []string{"a"}, "zh")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if server.count() != 1 {
		t.Fatalf("expected no retry after cancel, got %d requests", server.count())
	}
}

func TestLaterBatchFailureDoesNotRetryEarlierBatch(t *testing.T) {
	server := newFakeServer(t, func(n int, inputs []string, w http.ResponseWriter) {
		if n == 1 {
			echoTranslations(t, w, inputs)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})
	texts := make([]string, BatchSize+1)
	for i := range texts {
		texts[i] = "x"
	}
	_, err := newTestClient(server.URL, nil).TranslateBatch(context.Background(), texts, "zh")
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if server.count() != 1+MaxAttempts {
		t.Fatalf("expected first batch once plus %d attempts, got %d", MaxAttempts, server.count())
	}
}

func TestHealthCheckSingleAttempt(t *testing.T) {
	server := newFakeServer(t, func(_ int, _ []string, w http.ResponseWriter) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	err := newTestClient(server.URL, nil).HealthCheck(context.Background(), "zh")
	if err == nil || server.count() != 1 {
		t.Fatalf("expected one failed attempt, got err=%v requests=%d", err, server.count())
	}

	ok := newFakeServer(t, func(_ int, inputs []string, w http.ResponseWriter) {
		echoTranslations(t, w, inputs)
	})
	if err := newTestClient(ok.URL, nil).HealthCheck(context.Background(), "zh"); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestStripCodeFenceBlock(t *testing.T) {
	tests := map[string]string{
		"```json\n[\"a\"]\n```": `["a"]`,
		"```JSON [\"a\"] ```":   `JSON ["a"]`,
		"```\n[1]\n```":         `[1]`,
		"```json\n[\"a\"]":      "```json\n[\"a\"]",
		"[1]\n```":              "[1]\n```",
		`["plain"]`:             `["plain"]`,
	}
	for input, want := range tests {
		if got := stripCodeFenceBlock(input); got != want {
			t.Errorf("stripCodeFenceBlock(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTranslateBatchRejectsMalformedProxy(t *testing.T) {
	srv := newFakeServer(t, func(_ int, inputs []string, w http.ResponseWriter) {
		echoTranslations(t, w, inputs)
	})
	for _, proxy := range []string{"proxy.example:3128", "http://", "://bad"} {
		client := NewClient(Config{BaseURL: srv.URL, APIKey: "sk-test", Proxy: proxy})
		if _, err := client.TranslateBatch(context.Background(), []string{"hi"}, "zh"); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("proxy %q: expected configuration error, got %v", proxy, err)
		}
		if err := client.HealthCheck(context.Background(), "zh"); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("proxy %q: expected configuration error from HealthCheck, got %v", proxy, err)
		}
	}
	if n := srv.count(); n != 0 {
		t.Fatalf("expected no direct requests, got %d", n)
	}
}

func TestTranslateBatchRoutesThroughProxy(t *testing.T) {
	proxy := newFakeServer(t, func(_ int, inputs []string, w http.ResponseWriter) {
		echoTranslations(t, w, inputs)
	})
	client := NewClient(Config{BaseURL: "http://api.deepseek.invalid", APIKey: "sk-test", Proxy: proxy.URL})
	got, err := client.TranslateBatch(context.Background(), []string{"hi"}, "zh")
	if err != nil {
		t.Fatalf("TranslateBatch: %v", err)
	}
	if len(got) != 1 || got[0] != "T:hi" {
		t.Fatalf("unexpected translations %v", got)
	}
	if n := proxy.count(); n != 1 {
		t.Fatalf("expected 1 request through proxy, got %d", n)
	}
}

func TestClientIgnoresProxyEnvironment(t *testing.T) {
	t.Setenv("HTTPS_PROXY", "http://127.0.0.1:9")
	t.Setenv("HTTP_PROXY", "http://127.0.0.1:9")
	client := NewClient(Config{BaseURL: "https://api.deepseek.com", APIKey: "sk-test"})
	transport, ok := client.httpClient.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("unexpected transport %T", client.httpClient.Transport)
	}
	if transport.Proxy != nil {
		t.Fatal("client without a proxy must not read the proxy environment")
	}
}

func TestParseProxy(t *testing.T) {
	if u, err := ParseProxy("  "); u != nil || err != nil {
		t.Fatalf("empty proxy: got %v, %v", u, err)
	}
	u, err := ParseProxy("socks5://127.0.0.1:7890")
	if err != nil || u.Host != "127.0.0.1:7890" {
		t.Fatalf("valid proxy: got %v, %v", u, err)
	}
	if _, err := ParseProxy("127.0.0.1:7890"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
