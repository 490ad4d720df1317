package http_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/secmon-lab/contactbook/pkg/controller/http"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/repository/memory"
	"github.com/secmon-lab/contactbook/pkg/service/slack"
	"github.com/secmon-lab/contactbook/pkg/usecase"
	goslack "github.com/slack-go/slack"
)

const testSigningSecret = "test-signing-secret"

func computeSlackSignature(signingSecret, timestamp, body string) string {
	h := hmac.New(sha256.New, []byte(signingSecret))
	h.Write([]byte("v0:" + timestamp + ":" + body))
	return "v0=" + hex.EncodeToString(h.Sum(nil))
}

// signedRequest builds a POST carrying a valid Slack signature.
func signedRequest(path, contentType, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", computeSlackSignature(testSigningSecret, ts, body))
	return req
}

func formRequest(path string, form url.Values) *http.Request {
	return signedRequest(path, "application/x-www-form-urlencoded", form.Encode())
}

func interactionRequest(payload string) *http.Request {
	return formRequest("/slack/interactions", url.Values{"payload": {payload}})
}

// syncDispatch runs background work inline and keeps the errors.
type syncDispatch struct {
	mu     sync.Mutex
	names  []string
	errors []error
}

func (d *syncDispatch) run(ctx context.Context, name string, handler func(ctx context.Context) error) {
	err := handler(ctx)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = append(d.names, name)
	if err != nil {
		d.errors = append(d.errors, err)
	}
}

type testServer struct {
	server   *httpctrl.Server
	partner  *memory.Memory
	funder   *memory.Memory
	slack    *mockSlackService
	dispatch *syncDispatch

	sunrise *model.Organisation
	jane    *model.Contact
	msg     *model.Message
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	ts := &testServer{
		partner:  memory.New(),
		funder:   memory.New(),
		slack:    &mockSlackService{},
		dispatch: &syncDispatch{},
	}

	var err error
	ts.sunrise, err = ts.partner.Organisation().Create(ctx, &model.Organisation{Name: "Sunrise Project", Abbreviation: "TSP"})
	gt.NoError(t, err).Required()
	ts.jane, err = ts.partner.Contact().Create(ctx, &model.Contact{
		FirstName:       "Jane",
		LastName:        "Kajute",
		OrganisationIDs: []types.OrganisationID{ts.sunrise.ID},
	})
	gt.NoError(t, err).Required()
	ts.msg, err = ts.partner.Message().Upsert(ctx, model.MessageInput{
		ChannelID:     "C001",
		AuthorSlackID: "U001",
		TeamID:        "T001",
		TS:            "1612345678.000100",
		Text:          "Met Jane",
	})
	gt.NoError(t, err).Required()

	uc := usecase.New(ts.partner, ts.funder, usecase.WithSlackService(ts.slack))
	ts.server, err = httpctrl.New(uc,
		httpctrl.WithSigningSecret(testSigningSecret),
		httpctrl.WithSlackService(ts.slack),
		httpctrl.WithDispatcher(ts.dispatch.run),
	)
	gt.NoError(t, err).Required()
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)
	return rec
}

type mockSlackService struct {
	mu sync.Mutex

	opened    []goslack.ModalViewRequest
	pushed    []goslack.ModalViewRequest
	posted    []string
	responses []*goslack.WebhookMessage
	urls      []string
}

var _ slack.Service = (*mockSlackService)(nil)

func (m *mockSlackService) OpenView(ctx context.Context, triggerID string, view goslack.ModalViewRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, view)
	return nil
}

func (m *mockSlackService) PushView(ctx context.Context, triggerID string, view goslack.ModalViewRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushed = append(m.pushed, view)
	return nil
}

func (m *mockSlackService) PostMessage(ctx context.Context, channelID, threadTS, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posted = append(m.posted, text)
	return "1700000000.000100", nil
}

func (m *mockSlackService) PostResponse(ctx context.Context, responseURL string, msg *goslack.WebhookMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, responseURL)
	m.responses = append(m.responses, msg)
	return nil
}

func (m *mockSlackService) ListUsers(ctx context.Context) ([]*slack.User, error) {
	return nil, nil
}

func (m *mockSlackService) GetUserInfo(ctx context.Context, userID string) (*slack.User, error) {
	return &slack.User{ID: userID}, nil
}
