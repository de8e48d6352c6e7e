package http_test

import (
	"bufio"
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

	seerhttp "github.com/bbkanego/seerbot/internal/adapters/http"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu          sync.Mutex
	bots        map[string]domain.LaunchInfo
	calls       []string
	err         error
	invalidated []string
	chats       []domain.ChatRecord
}

func newFake() *fakeService {
	return &fakeService{bots: map[string]domain.LaunchInfo{
		"bot-1": {BotID: "bot-1", AllowedOrigins: []string{"https://shop.example.com"}},
		"open":  {BotID: "open", AllowedOrigins: []string{"*"}},
	}}
}

func (f *fakeService) HandleInboundMessage(_ context.Context, sessionID, botID, utterance, _ string) (domain.OutboundMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sessionID+"|"+botID+"|"+utterance)
	if f.err != nil {
		return domain.OutboundMessage{}, f.err
	}
	return domain.OutboundMessage{ResponseText: "echo: " + utterance, SessionID: sessionID, ChatSessionID: "cs-1", ChatID: "c-1"}, nil
}

func (f *fakeService) LaunchInfo(_ context.Context, botID string) (domain.LaunchInfo, error) {
	info, ok := f.bots[botID]
	if !ok {
		return domain.LaunchInfo{}, &domain.ConfigError{BotID: botID, Cause: domain.CauseLaunchInfo}
	}
	return info, nil
}

func (f *fakeService) ChatHistory(_ context.Context, id string) ([]domain.ChatRecord, error) {
	var out []domain.ChatRecord
	for _, c := range f.chats {
		if c.ChatSessionID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeService) AllChats(context.Context) ([]domain.ChatRecord, error) { return f.chats, nil }
func (f *fakeService) InvalidateBotConfig(botID string)                      { f.invalidated = append(f.invalidated, botID) }
func (f *fakeService) InvalidateAllBotConfigs()                              { f.invalidated = append(f.invalidated, "*") }

func chatRequest(body string, headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/chats", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) domain.ClientError {
	t.Helper()
	var ce domain.ClientError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ce))
	return ce
}

func TestPostChat_IssuesSessionCookie(t *testing.T) {
	svc := newFake()
	h := seerhttp.NewServer(svc).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, chatRequest(`{"message":"hello","botId":"bot-1"}`, map[string]string{
		seerhttp.HeaderOrigin: "https://shop.example.com",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reply domain.OutboundMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reply))
	assert.Equal(t, "echo: hello", reply.ResponseText)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, seerhttp.SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Value, reply.SessionID)

	// A returning visitor keeps its session and gets no new cookie.
	req := chatRequest(`{"message":"again"}`, map[string]string{
		seerhttp.HeaderBotID:  "bot-1",
		seerhttp.HeaderOrigin: "https://shop.example.com",
	})
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, []string{
		cookies[0].Value + "|bot-1|hello",
		cookies[0].Value + "|bot-1|again",
	}, svc.calls)
}

func TestPostChat_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		headers map[string]string
		status  int
		code    domain.ErrorCode
	}{
		{"malformed body", `{`, nil, http.StatusBadRequest, domain.CodeBadRequest},
		{"no bot id", `{"message":"hi"}`, nil, http.StatusBadRequest, domain.CodeBadRequest},
		{"unknown bot", `{"message":"hi","botId":"ghost"}`, map[string]string{seerhttp.HeaderOrigin: "https://shop.example.com"}, http.StatusBadRequest, domain.CodeConfigNotFound},
		{"wrong origin", `{"message":"hi","botId":"bot-1"}`, map[string]string{seerhttp.HeaderOrigin: "https://evil.example.com"}, http.StatusUnauthorized, domain.CodeUnauthorized},
		{"missing origin", `{"message":"hi","botId":"bot-1"}`, nil, http.StatusUnauthorized, domain.CodeUnauthorized},
		{"header disagrees with body", `{"message":"hi","botId":"bot-1"}`, map[string]string{
			seerhttp.HeaderBotID:  "open",
			seerhttp.HeaderOrigin: "https://shop.example.com",
		}, http.StatusUnauthorized, domain.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFake()
			rec := httptest.NewRecorder()
			seerhttp.NewServer(svc).Handler().ServeHTTP(rec, chatRequest(tt.body, tt.headers))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
			assert.Empty(t, svc.calls)
		})
	}
}

func TestPostChat_WildcardOriginAndBrowserOrigin(t *testing.T) {
	rec := httptest.NewRecorder()
	seerhttp.NewServer(newFake()).Handler().ServeHTTP(rec, chatRequest(`{"message":"hi","botId":"open"}`, map[string]string{
		"Origin": "https://anything.example.com",
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPostChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: empty message", domain.ErrInvalidRequest), http.StatusBadRequest},
		{domain.ErrConversationAlreadyActive, http.StatusConflict},
		{&domain.ConfigError{BotID: "open", Cause: domain.CauseLaunchInfo}, http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			svc := newFake()
			svc.err = tt.err
			rec := httptest.NewRecorder()
			seerhttp.NewServer(svc).Handler().ServeHTTP(rec, chatRequest(`{"message":"hi","botId":"open"}`, nil))

			assert.Equal(t, tt.status, rec.Code)
			ce := decodeError(t, rec)
			assert.NotEmpty(t, ce.ReferenceCode)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, ce.Message, "disk on fire")
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, seerhttp.StatusFor(domain.CodeBadRequest))
	assert.Equal(t, http.StatusBadRequest, seerhttp.StatusFor(domain.CodeConfigNotFound))
	assert.Equal(t, http.StatusConflict, seerhttp.StatusFor(domain.CodeConversationActive))
	assert.Equal(t, http.StatusUnauthorized, seerhttp.StatusFor(domain.CodeUnauthorized))
	assert.Equal(t, http.StatusInternalServerError, seerhttp.StatusFor(domain.CodeInternal))
}

func TestChatHistory(t *testing.T) {
	svc := newFake()
	svc.chats = []domain.ChatRecord{
		{ID: "1", ChatSessionID: "cs-1", Message: "hi"},
		{ID: "2", ChatSessionID: "cs-2", Message: "other"},
	}
	h := seerhttp.NewServer(svc, seerhttp.WithAdminToken("s3cret")).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chats/cs-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var records []domain.ChatRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "hi", records[0].Message)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chats/none", nil))
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "listing every chat is an admin route")

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set(seerhttp.HeaderAdminToken, "s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&records))
	assert.Len(t, records, 2)
}

func TestAdminInvalidate(t *testing.T) {
	svc := newFake()
	h := seerhttp.NewServer(svc, seerhttp.WithAdminToken("s3cret")).Handler()

	do := func(path, token string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		if token != "" {
			req.Header.Set(seerhttp.HeaderAdminToken, token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do("/api/admin/cache/invalidate", ""))
	assert.Equal(t, http.StatusUnauthorized, do("/api/admin/cache/invalidate", "wrong"))
	assert.Empty(t, svc.invalidated)

	assert.Equal(t, http.StatusNoContent, do("/api/admin/cache/invalidate/bot-1", "s3cret"))
	assert.Equal(t, http.StatusNoContent, do("/api/admin/cache/invalidate", "s3cret"))
	assert.Equal(t, []string{"bot-1", "*"}, svc.invalidated)
}

func TestAdminRoutesDisabledWithoutToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/cache/invalidate", nil)
	req.Header.Set(seerhttp.HeaderAdminToken, "")
	rec := httptest.NewRecorder()
	seerhttp.NewServer(newFake()).Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := seerhttp.NewServer(newFake(), seerhttp.WithRateLimit(0.001, 2)).Handler()

	codes := make([]int, 0, 3)
	for range 3 {
		req := chatRequest(`{"message":"hi","botId":"open"}`, nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Another client has its own bucket.
	req := chatRequest(`{"message":"hi","botId":"open"}`, nil)
	req.RemoteAddr = "198.51.100.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "seerbot_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h := seerhttp.NewServer(newFake(), seerhttp.WithMetrics(reg)).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "seerbot_test_total 1")
}

func TestEventStream(t *testing.T) {
	feed := seerhttp.NewFeed()
	srv := httptest.NewServer(seerhttp.NewServer(newFake(),
		seerhttp.WithAdminToken("s3cret"),
		seerhttp.WithFeed(feed),
	).Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/admin/events", nil)
	require.NoError(t, err)
	req.Header.Set(seerhttp.HeaderAdminToken, "s3cret")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	// The ping is flushed after the subscription exists.
	feed.Publish(ctx, &domain.Transaction{ID: "tx-1", Intent: "Hours", Success: true})

	var data string
	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "data: {") {
			data = strings.TrimPrefix(lines.Text(), "data: ")
			break
		}
	}
	var tx domain.Transaction
	require.NoError(t, json.Unmarshal([]byte(data), &tx))
	assert.Equal(t, "tx-1", tx.ID)
	assert.Equal(t, "Hours", tx.Intent)
}
