package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

type programRepository struct {
	s *store
}

func (r *programRepository) List(ctx context.Context) ([]*model.ProgramArea, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*model.ProgramArea, 0, len(r.s.programs))
	for _, p := range r.s.programs {
		result = append(result, copyProgram(p))
	}
	slices.SortFunc(result, func(a, b *model.ProgramArea) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

func (r *programRepository) Create(ctx context.Context, program *model.ProgramArea) (*model.ProgramArea, error) {
	if strings.TrimSpace(program.Name) == "" {
		return nil, goerr.Wrap(model.ErrValidation, "program name is required", goerr.V(model.FieldKey, "name"))
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	created := copyProgram(program)
	if created.ID == "" {
		created.ID = types.NewProgramID()
	}
	r.s.programs[created.ID] = created
	return copyProgram(created), nil
}

type grantRepository struct {
	s *store
}

func (r *grantRepository) Create(ctx context.Context, grant *model.Grant) (*model.Grant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orgs[grant.OrganisationID]; !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "organisation not found", goerr.V(model.OrgKey, grant.OrganisationID))
	}

	created := *grant
	created.Contact = nil
	if created.ID == "" {
		created.ID = types.NewGrantID()
	}
	r.s.grants[created.ID] = &created

	result := created
	return &result, nil
}

type adminRepository struct {
	s *store
}

func (r *adminRepository) HasPermission(ctx context.Context, username string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.admins[username]
	return ok, nil
}

func (r *adminRepository) Add(ctx context.Context, username string) error {
	if strings.TrimSpace(username) == "" {
		return goerr.Wrap(model.ErrValidation, "admin username is required", goerr.V(model.FieldKey, "username"))
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.admins[username] = struct{}{}
	return nil
}
