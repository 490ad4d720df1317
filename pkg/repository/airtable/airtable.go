package airtable

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/interfaces"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	airtablesvc "github.com/secmon-lab/contactbook/pkg/service/airtable"
)

const backendName = "airtable"

// lookupChunk bounds the number of RECORD_ID() terms per formula so the
// request URL stays well below Airtable's limit.
const lookupChunk = 50

// ErrUnsupported is returned for writes the base does not model, such as
// grants, which are maintained in the tracker itself.
var ErrUnsupported = goerr.New("operation not supported by the airtable backend")

// Client is the subset of the Airtable REST client used by the repository.
type Client interface {
	List(ctx context.Context, table string, p airtablesvc.ListParams) ([]*airtablesvc.Record, error)
	Get(ctx context.Context, table, id string) (*airtablesvc.Record, error)
	Create(ctx context.Context, table string, fields map[string]any) (*airtablesvc.Record, error)
	Update(ctx context.Context, table, id string, fields map[string]any) (*airtablesvc.Record, error)
}

// Airtable serves one dataset from one Airtable base.
type Airtable struct {
	base *base
}

type base struct {
	client Client
	schema Schema
	users  *userCache
}

var _ interfaces.Repository = (*Airtable)(nil)

func New(client Client, schema Schema) (*Airtable, error) {
	if client == nil {
		return nil, goerr.New("airtable client is required")
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return &Airtable{
		base: &base{
			client: client,
			schema: schema,
			users:  newUserCache(),
		},
	}, nil
}

func (r *Airtable) Contact() interfaces.ContactRepository {
	return &contactRepository{base: r.base}
}

func (r *Airtable) Organisation() interfaces.OrganisationRepository {
	return &organisationRepository{base: r.base}
}

func (r *Airtable) Message() interfaces.MessageRepository {
	return &messageRepository{base: r.base}
}

func (r *Airtable) User() interfaces.UserRepository {
	return &userRepository{base: r.base}
}

func (r *Airtable) Program() interfaces.ProgramRepository {
	return &programRepository{base: r.base}
}

func (r *Airtable) Grant() interfaces.GrantRepository {
	return &grantRepository{}
}

func (r *Airtable) Admin() interfaces.AdminRepository {
	return &adminRepository{base: r.base}
}

// Close is a no-op; the REST client holds no connections of its own.
func (r *Airtable) Close(ctx context.Context) error {
	return nil
}

// validRecordID reports whether id has the shape of an Airtable record ID
// ("rec" followed by 14 characters).
func validRecordID(id string) bool {
	return len(id) == 17 && strings.HasPrefix(id, "rec")
}

// notFound maps the client's not-found error onto model.ErrNotFound.
func notFound(err error) bool {
	return errors.Is(err, airtablesvc.ErrNotFound)
}

// fetchByIDs loads records by ID in chunks, ignoring the view filter. IDs
// that do not exist are skipped.
func (b *base) fetchByIDs(ctx context.Context, table string, fields []string, ids []string) ([]*airtablesvc.Record, error) {
	var out []*airtablesvc.Record
	for start := 0; start < len(ids); start += lookupChunk {
		end := min(start+lookupChunk, len(ids))
		records, err := b.client.List(ctx, table, airtablesvc.ListParams{
			Fields:  fields,
			Formula: airtablesvc.RecordIDIn(ids[start:end]),
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to fetch records by id",
				goerr.V("table", table), goerr.V("count", end-start))
		}
		out = append(out, records...)
	}
	return out, nil
}

// text returns a field as a string. Lookup and rollup fields arrive as
// arrays and are joined with ", ".
func text(rec *airtablesvc.Record, field string) string {
	if field == "" {
		return ""
	}
	v := rec.Field(field)
	if v.IsArray() {
		return strings.Join(rec.Strings(field), ", ")
	}
	return v.String()
}

// fieldList drops unmapped (empty) field names.
func fieldList(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// setField writes value only when the field is mapped.
func setField(fields map[string]any, name string, value any) {
	if name != "" {
		fields[name] = value
	}
}

func stringIDs[T ~string](ids []T) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[T]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, string(id))
	}
	return out
}

func typedIDs[T ~string](ids []string) []T {
	if len(ids) == 0 {
		return nil
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, T(id))
	}
	return out
}

// wrapNotFound converts a client not-found into model.ErrNotFound.
func wrapNotFound(err error, msg string, opts ...goerr.Option) error {
	if notFound(err) {
		return goerr.Wrap(model.ErrNotFound, msg, opts...)
	}
	return goerr.Wrap(err, msg, opts...)
}
