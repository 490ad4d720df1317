package memory

import (
	"context"
	"sync"

	"github.com/secmon-lab/contactbook/pkg/domain/interfaces"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory keeps the whole contact book in process. All sub repositories share
// one store because reads hydrate across entities.
type Memory struct {
	s *store
}

var _ interfaces.Repository = &Memory{}

type messageKey struct {
	channelID string
	ts        string
}

type store struct {
	mu sync.RWMutex

	users        map[types.UserID]*model.User
	userBySlack  map[string]types.UserID
	messages     map[types.MessageID]*model.Message
	messageByKey map[messageKey]types.MessageID
	msgContacts  map[types.MessageID][]types.ContactID
	contacts     map[types.ContactID]*model.Contact
	orgs         map[types.OrganisationID]*model.Organisation
	programs     map[types.ProgramID]*model.ProgramArea
	grants       map[types.GrantID]*model.Grant
	admins       map[string]struct{}
}

func New() *Memory {
	return &Memory{
		s: &store{
			users:        make(map[types.UserID]*model.User),
			userBySlack:  make(map[string]types.UserID),
			messages:     make(map[types.MessageID]*model.Message),
			messageByKey: make(map[messageKey]types.MessageID),
			msgContacts:  make(map[types.MessageID][]types.ContactID),
			contacts:     make(map[types.ContactID]*model.Contact),
			orgs:         make(map[types.OrganisationID]*model.Organisation),
			programs:     make(map[types.ProgramID]*model.ProgramArea),
			grants:       make(map[types.GrantID]*model.Grant),
			admins:       make(map[string]struct{}),
		},
	}
}

func (m *Memory) Contact() interfaces.ContactRepository {
	return &contactRepository{s: m.s}
}

func (m *Memory) Organisation() interfaces.OrganisationRepository {
	return &organisationRepository{s: m.s}
}

func (m *Memory) Message() interfaces.MessageRepository {
	return &messageRepository{s: m.s}
}

func (m *Memory) User() interfaces.UserRepository {
	return &userRepository{s: m.s}
}

func (m *Memory) Program() interfaces.ProgramRepository {
	return &programRepository{s: m.s}
}

func (m *Memory) Grant() interfaces.GrantRepository {
	return &grantRepository{s: m.s}
}

func (m *Memory) Admin() interfaces.AdminRepository {
	return &adminRepository{s: m.s}
}

func (m *Memory) Close(ctx context.Context) error {
	return nil
}
