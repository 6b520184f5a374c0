package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OdysseyFarmer/internal/model"
)

type fakeBotAPI struct {
	mu      sync.Mutex
	sent    []map[string]string
	fail    int
	updates string
}

func (f *fakeBotAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/botTOKEN/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.fail > 0 {
			f.fail--
			http.Error(w, "flood", http.StatusTooManyRequests)
			return
		}
		f.sent = append(f.sent, payload)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/botTOKEN/getUpdates", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		body := f.updates
		f.updates = `{"ok":true,"result":[]}`
		f.mu.Unlock()
		if r.URL.Query().Get("offset") != "0" {
			// block like a long poll until the client gives up
			<-r.Context().Done()
			return
		}
		_, _ = w.Write([]byte(body))
	})
	return mux
}

func (f *fakeBotAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.sent {
		out = append(out, p["text"])
	}
	return out
}

func newTestNotifier(t *testing.T, api *fakeBotAPI) *TelegramNotifier {
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	n.APIBase = srv.URL
	return n
}

func TestSendPostsHTMLMessage(t *testing.T) {
	api := &fakeBotAPI{}
	n := newTestNotifier(t, api)

	require.NoError(t, n.Send(context.Background(), "<b>hi</b>"))
	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.sent, 1)
	assert.Equal(t, "42", api.sent[0]["chat_id"])
	assert.Equal(t, "HTML", api.sent[0]["parse_mode"])
}

func TestSendReportsAPIError(t *testing.T) {
	api := &fakeBotAPI{fail: 1}
	n := newTestNotifier(t, api)
	err := n.Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestSendWithRetryRecovers(t *testing.T) {
	api := &fakeBotAPI{fail: 1}
	n := newTestNotifier(t, api)
	require.NoError(t, n.SendWithRetry(context.Background(), "x", 2))
	assert.Equal(t, []string{"x"}, api.texts())
}

func TestSendWithRetryHonorsContext(t *testing.T) {
	api := &fakeBotAPI{fail: 10}
	n := newTestNotifier(t, api)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := n.SendWithRetry(ctx, "x", 5)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNotifyEntryFiltersAndDelivers(t *testing.T) {
	api := &fakeBotAPI{}
	n := newTestNotifier(t, api)

	n.NotifyEntry(model.LogEntry{Action: "ping", Outcome: model.Sent("0xabc")})
	n.NotifyEntry(model.LogEntry{Action: "stop", Outcome: model.Info("stopped")})
	n.NotifyEntry(model.LogEntry{Account: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", Action: "mint", Outcome: model.Failed(errors.New("nonce <low>"))})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { n.Run(ctx); close(done) }()
	require.Eventually(t, func() bool { return len(api.texts()) == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	texts := api.texts()
	assert.Contains(t, texts[0], "stopped")
	assert.Contains(t, texts[1], "0xf39F…2266")
	assert.Contains(t, texts[1], "nonce &lt;low&gt;")
}

func TestPollingDispatchesOnlyConfiguredChat(t *testing.T) {
	api := &fakeBotAPI{updates: `{"ok":true,"result":[
		{"update_id":1,"message":{"text":"/status","chat":{"id":42}}},
		{"update_id":2,"message":{"text":"/stop","chat":{"id":7}}}
	]}`}
	n := newTestNotifier(t, api)

	var mu sync.Mutex
	var got []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(_ context.Context, cmd string) string {
			mu.Lock()
			got = append(got, cmd)
			mu.Unlock()
			return "pong"
		})
		close(done)
	}()

	require.Eventually(t, func() bool { return len(api.texts()) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/status"}, got)
	assert.Equal(t, []string{"pong"}, api.texts())
}

func TestFormatStatus(t *testing.T) {
	st := model.Status{
		Running: true,
		RunID:   "r1",
		Mode:    model.ModeCron,
		Actions: []string{"ping", "mint"},
		RPC:     model.Probe{ExpectedChainID: 911867, ChainID: 911867, Diag: "eth_chainId=911867 block=5"},
		Accounts: []model.AccountStatus{
			{Identity: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", BalanceEth: "0.000123456789", Low: true, DailyTarget: 48},
			{Identity: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", BalanceEth: "0", Err: "timeout"},
		},
	}
	out := FormatStatus(st)
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "mode cron")
	assert.Contains(t, out, "ping, mint")
	assert.Contains(t, out, "0.000123 ETH 🔻low | 48/day")
	assert.Contains(t, out, "⚠️ timeout")
	assert.Contains(t, out, "rpc ✅")

	idle := FormatStatus(model.Status{})
	assert.Contains(t, idle, "idle")
	assert.Contains(t, idle, "no accounts loaded")
	assert.Contains(t, idle, "rpc ⚠️")
}

func TestFormatLogs(t *testing.T) {
	assert.Equal(t, "log is empty", FormatLogs(nil))
	out := FormatLogs([]model.LogEntry{
		{Time: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Action: "approve", Target: "0x706A", Outcome: model.Skipped("insufficient funds")},
	})
	assert.True(t, strings.Contains(out, "03:04:05 ⏭ <b>approve</b> 0x706A: skipped: insufficient funds"))
}
