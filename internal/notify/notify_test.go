package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/custody/internal/chain"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

func fastRetry() *chain.RetryConfig {
	return &chain.RetryConfig{MaxAttempts: 3, BaseDelay: 2 * time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestConsole(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewConsole(&buf)
	require.NoError(t, c.Send(context.Background(), "+200", "💰 Received 10 USDT\nTX: 0xabc"))
	assert.Equal(t, "[+200] 💰 Received 10 USDT\nTX: 0xabc\n", buf.String())

	require.NoError(t, Discard{}.Send(context.Background(), "+200", "ignored"))
}

func TestNewWhatsApp_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  WhatsAppConfig
	}{
		{"no url", WhatsAppConfig{PhoneNumberID: "1", Token: "t"}},
		{"no phone id", WhatsAppConfig{APIURL: "http://x", Token: "t"}},
		{"no token", WhatsAppConfig{APIURL: "http://x", PhoneNumberID: "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewWhatsApp(tt.cfg)
			require.ErrorIs(t, err, custodyerr.ErrConfiguration)
		})
	}
}

func TestWhatsApp_Send(t *testing.T) {
	t.Parallel()

	var got messageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v18.0/10987/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	w, err := NewWhatsApp(WhatsAppConfig{
		APIURL:        srv.URL + "/v18.0/",
		PhoneNumberID: "10987",
		Token:         "secret-token",
		Retry:         fastRetry(),
	})
	require.NoError(t, err)

	require.NoError(t, w.Send(context.Background(), "2348012345678", "hello"))
	assert.Equal(t, messageRequest{
		MessagingProduct: "whatsapp",
		To:               "2348012345678",
		Type:             "text",
		Text:             textBody{Body: "hello"},
	}, got)
}

func TestWhatsApp_SendFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int
		wantMsg   string
	}{
		{"bad request not retried", http.StatusBadRequest, `{"error":{"message":"Invalid parameter","code":100}}`, 1, "Invalid parameter"},
		{"unauthorized not retried", http.StatusUnauthorized, ``, 1, "Unauthorized"},
		{"server error retried", http.StatusBadGateway, ``, 3, "502"},
		{"rate limited retried", http.StatusTooManyRequests, ``, 3, "429"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var mu sync.Mutex
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				mu.Lock()
				calls++
				mu.Unlock()
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			w, err := NewWhatsApp(WhatsAppConfig{APIURL: srv.URL, PhoneNumberID: "1", Token: "t", Retry: fastRetry()})
			require.NoError(t, err)

			err = w.Send(context.Background(), "+200", "hi")
			require.ErrorIs(t, err, custodyerr.ErrNotification)
			assert.Contains(t, err.Error(), tt.wantMsg)

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestWhatsApp_RetryThenSuccess(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w, err := NewWhatsApp(WhatsAppConfig{APIURL: srv.URL, PhoneNumberID: "1", Token: "t", Retry: fastRetry()})
	require.NoError(t, err)
	require.NoError(t, w.Send(context.Background(), "+200", "hi"))
}

// recorder is a Channel capturing messages.
type recorder struct {
	mu   sync.Mutex
	sent []message
	err  error
}

func (r *recorder) Send(_ context.Context, to, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, message{to: to, text: text})
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type errorCounter struct {
	mu     sync.Mutex
	errors int
}

func (e *errorCounter) Debug(string, ...any) {}
func (e *errorCounter) Error(string, ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors++
}

func (e *errorCounter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errors
}

func TestDispatcher(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	d := NewDispatcher(rec, nil)
	d.Start()
	defer d.Stop()

	for i := 0; i < 50; i++ {
		require.NoError(t, d.Send(context.Background(), "+200", "msg"))
	}
	require.Eventually(t, func() bool { return rec.count() == 50 }, 2*time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	assert.Equal(t, message{to: "+200", text: "msg"}, rec.sent[0])
	rec.mu.Unlock()
}

func TestDispatcher_FailuresAreLogged(t *testing.T) {
	t.Parallel()

	rec := &recorder{err: errors.New("boom")}
	logs := &errorCounter{}
	d := NewDispatcher(rec, logs)
	d.Start()
	defer d.Stop()

	require.NoError(t, d.Send(context.Background(), "+200", "msg"))
	require.Eventually(t, func() bool { return logs.count() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestDispatcher_AfterStop(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(&recorder{}, nil)
	d.Start()
	d.Stop()
	d.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := d.Send(ctx, "+200", "late")
	require.Error(t, err)
}
