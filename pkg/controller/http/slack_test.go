package http_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/secmon-lab/contactbook/pkg/controller/http"
	"github.com/secmon-lab/contactbook/pkg/repository/memory"
	"github.com/secmon-lab/contactbook/pkg/usecase"
)

func TestVerifySlackSignature(t *testing.T) {
	body := []byte(`{"type":"url_verification","challenge":"test"}`)
	now := strconv.FormatInt(time.Now().Unix(), 10)
	old := strconv.FormatInt(time.Now().Add(-10*time.Minute).Unix(), 10)

	testCases := []struct {
		name      string
		timestamp string
		signature string
		wantErr   bool
	}{
		{
			name:      "valid signature",
			timestamp: now,
			signature: computeSlackSignature(testSigningSecret, now, string(body)),
		},
		{
			name:      "invalid signature",
			timestamp: now,
			signature: "v0=invalid_signature",
			wantErr:   true,
		},
		{
			name:      "missing timestamp",
			signature: computeSlackSignature(testSigningSecret, "123456", string(body)),
			wantErr:   true,
		},
		{
			name:      "missing signature",
			timestamp: now,
			wantErr:   true,
		},
		{
			name:      "timestamp too old",
			timestamp: old,
			signature: computeSlackSignature(testSigningSecret, old, string(body)),
			wantErr:   true,
		},
		{
			name:      "invalid timestamp format",
			timestamp: "not-a-number",
			signature: computeSlackSignature(testSigningSecret, "not-a-number", string(body)),
			wantErr:   true,
		},
		{
			name:      "wrong secret",
			timestamp: now,
			signature: computeSlackSignature("wrong-secret", now, string(body)),
			wantErr:   true,
		},
		{
			name:      "different body",
			timestamp: now,
			signature: computeSlackSignature(testSigningSecret, now, "different body"),
			wantErr:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := httpctrl.VerifySlackSignature(testSigningSecret, tc.timestamp, tc.signature, body)
			if tc.wantErr {
				gt.Error(t, err)
			} else {
				gt.NoError(t, err)
			}
		})
	}
}

func TestSlackSignatureMiddleware(t *testing.T) {
	body := `{"type":"url_verification","challenge":"test"}`

	t.Run("restores the body for the next handler", func(t *testing.T) {
		var received []byte
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var err error
			received, err = io.ReadAll(r.Body)
			gt.NoError(t, err)
			w.WriteHeader(http.StatusOK)
		})

		rec := httptest.NewRecorder()
		httpctrl.SlackSignatureMiddleware(testSigningSecret)(next).ServeHTTP(rec, signedRequest("/slack/events", "application/json", body))

		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, string(received)).Equal(body)
	})

	t.Run("rejects a bad signature", func(t *testing.T) {
		called := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader([]byte(body)))
		req.Header.Set("X-Slack-Request-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))
		req.Header.Set("X-Slack-Signature", "v0=invalid")

		rec := httptest.NewRecorder()
		httpctrl.SlackSignatureMiddleware(testSigningSecret)(next).ServeHTTP(rec, req)

		gt.Bool(t, called).False()
		gt.Value(t, rec.Code).Equal(http.StatusUnauthorized)
	})
}

func TestNew(t *testing.T) {
	uc := usecase.New(memory.New(), memory.New())

	t.Run("signing secret is required", func(t *testing.T) {
		_, err := httpctrl.New(uc)
		gt.Error(t, err)
	})

	t.Run("usecases are required", func(t *testing.T) {
		_, err := httpctrl.New(nil, httpctrl.WithSigningSecret("x"))
		gt.Error(t, err)
	})
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	gt.Value(t, rec.Body.String()).Equal("ok")

	// the health request above is already counted
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	gt.Bool(t, strings.Contains(rec.Body.String(), "contactbook_http_requests_total")).True()
}

func TestSlackEvents(t *testing.T) {
	t.Run("url verification echoes the challenge", func(t *testing.T) {
		ts := newTestServer(t)
		body := `{"token":"x","type":"url_verification","challenge":"test-challenge-token"}`

		rec := ts.do(signedRequest("/slack/events", "application/json", body))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, rec.Body.String()).Equal("test-challenge-token")
	})

	t.Run("callback events are acknowledged", func(t *testing.T) {
		ts := newTestServer(t)
		body := `{"token":"x","team_id":"T123","api_app_id":"A123","type":"event_callback",` +
			`"event":{"type":"app_mention","user":"U123","text":"hi","ts":"1.2","channel":"C123","event_ts":"1.2"}}`

		rec := ts.do(signedRequest("/slack/events", "application/json", body))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
	})

	t.Run("unsigned requests are rejected", func(t *testing.T) {
		ts := newTestServer(t)
		req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(`{"type":"url_verification"}`))
		rec := ts.do(req)
		gt.Value(t, rec.Code).Equal(http.StatusUnauthorized)
	})
}
