package firestore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type programRepository struct {
	*base
}

func (r *programRepository) List(ctx context.Context) ([]*model.ProgramArea, error) {
	defer metrics.ObserveRepository(backendName, "program.list")()

	docs, err := listAll[programDoc](r.collection(programsCollection).Documents(ctx), programsCollection)
	if err != nil {
		return nil, err
	}
	result := make([]*model.ProgramArea, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toModel())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *programRepository) Create(ctx context.Context, program *model.ProgramArea) (*model.ProgramArea, error) {
	defer metrics.ObserveRepository(backendName, "program.create")()

	if strings.TrimSpace(program.Name) == "" {
		return nil, goerr.Wrap(model.ErrValidation, "program name is required", goerr.V(model.FieldKey, "name"))
	}
	id := program.ID
	if id == "" {
		id = types.NewProgramID()
	}
	doc := &programDoc{ID: id.String(), Name: program.Name, Notes: program.Notes}
	if _, err := r.collection(programsCollection).Doc(doc.ID).Create(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to create program", goerr.V("name", program.Name))
	}
	return doc.toModel(), nil
}

type grantRepository struct {
	*base
}

func (r *grantRepository) Create(ctx context.Context, grant *model.Grant) (*model.Grant, error) {
	defer metrics.ObserveRepository(backendName, "grant.create")()

	if !validDocID(grant.OrganisationID.String()) {
		return nil, goerr.Wrap(model.ErrNotFound, "organisation not found", goerr.V(model.OrgKey, grant.OrganisationID))
	}
	_, err := r.collection(organisationsCollection).Doc(grant.OrganisationID.String()).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, goerr.Wrap(model.ErrNotFound, "organisation not found", goerr.V(model.OrgKey, grant.OrganisationID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get organisation", goerr.V(model.OrgKey, grant.OrganisationID))
	}

	id := grant.ID
	if id == "" {
		id = types.NewGrantID()
	}
	doc := &grantDoc{
		ID:             id.String(),
		OrganisationID: grant.OrganisationID.String(),
		ContactID:      grant.ContactID.String(),
		Proposal:       grant.Proposal,
		ProjectCode:    grant.ProjectCode,
		Amount:         grant.Amount,
		PlannedAmount:  grant.PlannedAmount,
		Currency:       grant.Currency,
		Status:         grant.Status,
		StartedAt:      grant.StartedAt,
		URL:            grant.URL,
		Notes:          grant.Notes,
	}
	if _, err := r.collection(grantsCollection).Doc(doc.ID).Create(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to create grant", goerr.V("proposal", grant.Proposal))
	}
	return doc.toModel(), nil
}

type adminRepository struct {
	*base
}

func (r *adminRepository) HasPermission(ctx context.Context, username string) (bool, error) {
	defer metrics.ObserveRepository(backendName, "admin.has_permission")()

	if !validDocID(username) {
		return false, nil
	}
	_, err := r.collection(adminsCollection).Doc(username).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to get admin", goerr.V("username", username))
	}
	return true, nil
}

func (r *adminRepository) Add(ctx context.Context, username string) error {
	defer metrics.ObserveRepository(backendName, "admin.add")()

	if strings.TrimSpace(username) == "" || !validDocID(username) {
		return goerr.Wrap(model.ErrValidation, "invalid admin username", goerr.V(model.FieldKey, "username"))
	}
	doc := &adminDoc{Username: username, CreatedAt: time.Now().UTC()}
	if _, err := r.collection(adminsCollection).Doc(username).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to add admin", goerr.V("username", username))
	}
	return nil
}
