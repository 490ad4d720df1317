package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/contactbook/pkg/domain/interfaces"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/repository/memory"
	"github.com/secmon-lab/contactbook/pkg/service/slack"
	goslack "github.com/slack-go/slack"
)

// fixture is a partner and a funder contact book with a few records.
type fixture struct {
	partner *memory.Memory
	funder  *memory.Memory

	climate  *model.ProgramArea
	sunrise  *model.Organisation
	sunshine *model.Organisation
	jane     *model.Contact
	bob      *model.Contact
	janeMsg  *model.Message

	fund     *model.Organisation
	alice    *model.Contact
	aliceMsg *model.Message
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{partner: memory.New(), funder: memory.New()}

	var err error
	f.climate, err = f.partner.Program().Create(ctx, &model.ProgramArea{Name: "Climate"})
	gt.NoError(t, err).Required()

	f.sunrise, err = f.partner.Organisation().Create(ctx, &model.Organisation{
		Name:         "Sunrise Project",
		Abbreviation: "TSP",
		Website:      "https://example.org",
		Notes:        "Long standing partner",
		ProgramIDs:   []types.ProgramID{f.climate.ID},
	})
	gt.NoError(t, err).Required()

	f.sunshine, err = f.partner.Organisation().Create(ctx, &model.Organisation{Name: "Sunshine Coast Trust"})
	gt.NoError(t, err).Required()

	f.jane, err = f.partner.Contact().Create(ctx, &model.Contact{
		FirstName:       "Jane",
		LastName:        "Kajute",
		Email:           "jane@example.org",
		Role:            "Director",
		OrganisationIDs: []types.OrganisationID{f.sunrise.ID},
		ProgramIDs:      []types.ProgramID{f.climate.ID},
	})
	gt.NoError(t, err).Required()

	f.bob, err = f.partner.Contact().Create(ctx, &model.Contact{
		FirstName:       "Bob",
		LastName:        "Aardvark",
		OrganisationIDs: []types.OrganisationID{f.sunrise.ID},
	})
	gt.NoError(t, err).Required()

	started := time.Date(2020, time.July, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.partner.Grant().Create(ctx, &model.Grant{
		OrganisationID: f.sunrise.ID,
		ContactID:      f.jane.ID,
		Proposal:       "Coal transition",
		ProjectCode:    "CT-01",
		Amount:         50000,
		Currency:       "AUD",
		Status:         "Paid",
		StartedAt:      &started,
	})
	gt.NoError(t, err).Required()

	f.janeMsg, err = f.partner.Message().Upsert(ctx, model.MessageInput{
		ChannelID:     "C001",
		AuthorSlackID: "U001",
		TeamID:        "T001",
		TS:            "1612345678.000100",
		Text:          "Met Jane for coffee",
	})
	gt.NoError(t, err).Required()
	gt.NoError(t, f.partner.Message().SetContacts(ctx, f.janeMsg.ID, []types.ContactID{f.jane.ID})).Required()

	// funder book
	gt.NoError(t, f.funder.Admin().Add(ctx, "admin")).Required()

	f.fund, err = f.funder.Organisation().Create(ctx, &model.Organisation{
		Name:       "Climate Fund",
		Website:    "https://fund.example.org",
		ProfileURL: "https://tracker.example.org/fund",
	})
	gt.NoError(t, err).Required()

	f.alice, err = f.funder.Contact().Create(ctx, &model.Contact{
		FirstName:       "Alice",
		LastName:        "Moneypenny",
		Email:           "alice@fund.example.org",
		OrganisationIDs: []types.OrganisationID{f.fund.ID},
	})
	gt.NoError(t, err).Required()

	f.aliceMsg, err = f.funder.Message().Upsert(ctx, model.MessageInput{
		ChannelID:     "C002",
		AuthorSlackID: "U002",
		TeamID:        "T001",
		TS:            "1612345999.000200",
		Text:          "Pitched the coal transition to Alice",
	})
	gt.NoError(t, err).Required()
	gt.NoError(t, f.funder.Message().SetContacts(ctx, f.aliceMsg.ID, []types.ContactID{f.alice.ID})).Required()

	return f
}

// texts flattens the visible text of blocks for assertions.
func texts(blocks []goslack.Block) []string {
	var out []string
	for _, b := range blocks {
		switch v := b.(type) {
		case *goslack.SectionBlock:
			if v.Text != nil {
				out = append(out, v.Text.Text)
			}
			for _, f := range v.Fields {
				out = append(out, f.Text)
			}
		case *goslack.HeaderBlock:
			out = append(out, v.Text.Text)
		case *goslack.ContextBlock:
			for _, e := range v.ContextElements.Elements {
				if obj, ok := e.(*goslack.TextBlockObject); ok {
					out = append(out, obj.Text)
				}
			}
		}
	}
	return out
}

func joined(blocks []goslack.Block) string {
	return strings.Join(texts(blocks), "\n")
}

type mockSlackService struct {
	mu sync.Mutex

	openViewFunc    func(ctx context.Context, triggerID string, view goslack.ModalViewRequest) error
	pushViewFunc    func(ctx context.Context, triggerID string, view goslack.ModalViewRequest) error
	postMessageFunc func(ctx context.Context, channelID, threadTS, text string) (string, error)

	opened []goslack.ModalViewRequest
	pushed []goslack.ModalViewRequest
	posted []postedMessage
}

type postedMessage struct {
	channelID string
	threadTS  string
	text      string
}

var _ slack.Service = (*mockSlackService)(nil)

func (m *mockSlackService) OpenView(ctx context.Context, triggerID string, view goslack.ModalViewRequest) error {
	m.mu.Lock()
	m.opened = append(m.opened, view)
	m.mu.Unlock()
	if m.openViewFunc != nil {
		return m.openViewFunc(ctx, triggerID, view)
	}
	return nil
}

func (m *mockSlackService) PushView(ctx context.Context, triggerID string, view goslack.ModalViewRequest) error {
	m.mu.Lock()
	m.pushed = append(m.pushed, view)
	m.mu.Unlock()
	if m.pushViewFunc != nil {
		return m.pushViewFunc(ctx, triggerID, view)
	}
	return nil
}

func (m *mockSlackService) PostMessage(ctx context.Context, channelID, threadTS, text string) (string, error) {
	m.mu.Lock()
	m.posted = append(m.posted, postedMessage{channelID: channelID, threadTS: threadTS, text: text})
	m.mu.Unlock()
	if m.postMessageFunc != nil {
		return m.postMessageFunc(ctx, channelID, threadTS, text)
	}
	return "1700000000.000100", nil
}

func (m *mockSlackService) PostResponse(ctx context.Context, responseURL string, msg *goslack.WebhookMessage) error {
	return nil
}

func (m *mockSlackService) ListUsers(ctx context.Context) ([]*slack.User, error) {
	return nil, nil
}

func (m *mockSlackService) GetUserInfo(ctx context.Context, userID string) (*slack.User, error) {
	return &slack.User{ID: userID}, nil
}

// brokenAdmins wraps a repository whose admin lookup fails.
type brokenAdmins struct {
	interfaces.Repository
}

func (r *brokenAdmins) Admin() interfaces.AdminRepository {
	return failingAdminRepository{}
}

type failingAdminRepository struct{}

func (failingAdminRepository) HasPermission(ctx context.Context, username string) (bool, error) {
	return false, errors.New("admin table unavailable")
}

func (failingAdminRepository) Add(ctx context.Context, username string) error {
	return errors.New("admin table unavailable")
}

// fixedMessage wraps a repository so that Message().Get(id) returns msg.
type fixedMessage struct {
	interfaces.Repository
	id  types.MessageID
	msg *model.Message
}

func (r *fixedMessage) Message() interfaces.MessageRepository {
	return &fixedMessageRepository{MessageRepository: r.Repository.Message(), id: r.id, msg: r.msg}
}

type fixedMessageRepository struct {
	interfaces.MessageRepository
	id  types.MessageID
	msg *model.Message
}

func (r *fixedMessageRepository) Get(ctx context.Context, id types.MessageID) (*model.Message, error) {
	if id == r.id {
		return r.msg, nil
	}
	return r.MessageRepository.Get(ctx, id)
}
