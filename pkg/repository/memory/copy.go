package memory

import (
	"slices"

	"github.com/secmon-lab/contactbook/pkg/domain/model"
)

// Stored records never hold hydrated relations. The helpers below return
// detached copies so callers cannot mutate the store.

func copyOrganisation(o *model.Organisation) *model.Organisation {
	c := *o
	c.ProgramIDs = slices.Clone(o.ProgramIDs)
	c.Programs = nil
	c.Contacts = nil
	c.Grants = nil
	return &c
}

func copyContact(src *model.Contact) *model.Contact {
	c := *src
	c.OrganisationIDs = slices.Clone(src.OrganisationIDs)
	c.ProgramIDs = slices.Clone(src.ProgramIDs)
	c.Organisations = nil
	c.Programs = nil
	return &c
}

func copyProgram(p *model.ProgramArea) *model.ProgramArea {
	c := *p
	return &c
}

// hydrateContact must be called with the read lock held.
func (s *store) hydrateContact(src *model.Contact) *model.Contact {
	c := copyContact(src)
	c.Organisations = make([]*model.Organisation, 0, len(c.OrganisationIDs))
	for _, id := range c.OrganisationIDs {
		if o, ok := s.orgs[id]; ok {
			c.Organisations = append(c.Organisations, copyOrganisation(o))
		}
	}
	c.Programs = make([]*model.ProgramArea, 0, len(c.ProgramIDs))
	for _, id := range c.ProgramIDs {
		if p, ok := s.programs[id]; ok {
			c.Programs = append(c.Programs, copyProgram(p))
		}
	}
	return c
}

// hydrateMessage must be called with the read lock held.
func (s *store) hydrateMessage(src *model.Message) *model.Message {
	m := *src
	ids := s.msgContacts[src.ID]
	m.Contacts = make([]*model.Contact, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.contacts[id]; ok {
			m.Contacts = append(m.Contacts, s.hydrateContact(c))
		}
	}
	return &m
}
