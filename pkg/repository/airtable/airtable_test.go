package airtable_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
	"github.com/secmon-lab/contactbook/pkg/repository/airtable"
	airtablesvc "github.com/secmon-lab/contactbook/pkg/service/airtable"
)

func recID(kind string, n int) string {
	return fmt.Sprintf("rec%s%011d", kind, n)
}

type fakeRecord struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

// fakeBase replays an Airtable base over HTTP. It understands only the
// formula shapes produced by the repository.
type fakeBase struct {
	mu      sync.Mutex
	tables  map[string][]*fakeRecord
	seq     int
	patches []string
}

var (
	reRecordID = regexp.MustCompile(`RECORD_ID\(\)="([^"]+)"`)
	reContains = regexp.MustCompile(`^FIND\(LOWER\("([^"]*)"\), LOWER\(\{([^}]+)\}\)\)$`)
	reEquals   = regexp.MustCompile(`\{([^}]+)\}="([^"]*)"`)
)

func (f *fakeBase) add(table string, rec *fakeRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.CreatedTime == "" {
		rec.CreatedTime = "2024-01-01T00:00:00.000Z"
	}
	f.tables[table] = append(f.tables[table], rec)
}

func (f *fakeBase) match(rec *fakeRecord, formula string) bool {
	switch {
	case formula == "":
		return true
	case formula == "FALSE()":
		return false
	case strings.Contains(formula, "RECORD_ID()"):
		for _, m := range reRecordID.FindAllStringSubmatch(formula, -1) {
			if m[1] == rec.ID {
				return true
			}
		}
		return false
	case reContains.MatchString(formula):
		m := reContains.FindStringSubmatch(formula)
		v, _ := rec.Fields[m[2]].(string)
		return strings.Contains(strings.ToLower(v), strings.ToLower(m[1]))
	default:
		for _, m := range reEquals.FindAllStringSubmatch(formula, -1) {
			if fmt.Sprint(rec.Fields[m[1]]) != m[2] {
				return false
			}
		}
		return true
	}
}

func (f *fakeBase) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/appTEST/"), "/")
	table := parts[0]

	find := func(id string) *fakeRecord {
		for _, rec := range f.tables[table] {
			if rec.ID == id {
				return rec
			}
		}
		return nil
	}
	notFound := func() {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"NOT_FOUND"}`))
	}

	switch r.Method {
	case http.MethodGet:
		if len(parts) == 2 {
			rec := find(parts[1])
			if rec == nil {
				notFound()
				return
			}
			_ = json.NewEncoder(w).Encode(rec)
			return
		}

		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("maxRecords"))
		out := []*fakeRecord{}
		for _, rec := range f.tables[table] {
			if f.match(rec, q.Get("filterByFormula")) {
				out = append(out, rec)
			}
			if limit > 0 && len(out) == limit {
				break
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"records": out})

	case http.MethodPost, http.MethodPatch:
		var body struct {
			Fields map[string]any `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}

		if r.Method == http.MethodPost {
			f.seq++
			rec := &fakeRecord{
				ID:          recID("NEW", f.seq),
				CreatedTime: time.Now().UTC().Format(time.RFC3339),
				Fields:      body.Fields,
			}
			f.tables[table] = append(f.tables[table], rec)
			_ = json.NewEncoder(w).Encode(rec)
			return
		}

		rec := find(parts[1])
		if rec == nil {
			notFound()
			return
		}
		for k, v := range body.Fields {
			rec.Fields[k] = v
		}
		f.patches = append(f.patches, table+"/"+rec.ID)
		_ = json.NewEncoder(w).Encode(rec)
	}
}

func newFakeRepository(t *testing.T, schema airtable.Schema) (*airtable.Airtable, *fakeBase) {
	t.Helper()

	fb := &fakeBase{tables: map[string][]*fakeRecord{}}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	client, err := airtablesvc.New("key", "appTEST",
		airtablesvc.WithEndpoint(srv.URL),
		airtablesvc.WithRateLimit(0),
	)
	gt.NoError(t, err).Required()

	repo, err := airtable.New(client, schema)
	gt.NoError(t, err).Required()
	return repo, fb
}

func seedPartner(fb *fakeBase) {
	fb.add("Partner Organisations", &fakeRecord{
		ID: recID("ORG", 1),
		Fields: map[string]any{
			"EC-display":                        "Sunrise Project (TSP)",
			"Short Name":                        "Sunrise Project",
			"Abbreviation":                      "TSP",
			"Website":                           "https://sunrise.example",
			"Notes":                             "Long standing partner",
			"Granted to (or future grant plan)": true,
			"EC-contact-info": []any{
				recID("CON", 1) + "|Jane|Kajute|jane@example.org|0400 000 000|Director|Met at summit",
				recID("CON", 2) + "|Bob|Smith",
			},
			"EC-program-display": []any{"Oceans", "Coal"},
			"EC-grant-info": []any{
				"2020-03|Coal campaign|https://tracker.example/g/1|USD 50,000|65000",
				"2999-01|Future work|https://tracker.example/g/2||10000",
			},
		},
	})
	fb.add("Partner Organisations", &fakeRecord{
		ID: recID("ORG", 2),
		Fields: map[string]any{
			"EC-display": "Moonset Collective",
			"Short Name": "Moonset Collective",
		},
	})
	fb.add("Contacts", &fakeRecord{
		ID: recID("CON", 1),
		Fields: map[string]any{
			"EC-display":           "Jane Kajute Sunrise Project",
			"First Name":           "Jane",
			"Last Name":            "Kajute",
			"Email":                "jane@example.org",
			"Partner organisation": []any{recID("ORG", 1)},
		},
	})
	fb.add("Contacts", &fakeRecord{
		ID: recID("CON", 2),
		Fields: map[string]any{
			"EC-display": "Bob Smith",
			"First Name": "Bob",
			"Last Name":  "Smith",
		},
	})
}

func TestAirtable_OrganisationDetail(t *testing.T) {
	repo, fb := newFakeRepository(t, airtable.DefaultPartnerSchema())
	seedPartner(fb)
	ctx := context.Background()

	org, err := repo.Organisation().GetDetail(ctx, types.OrganisationID(recID("ORG", 1)))
	gt.NoError(t, err).Required()
	gt.Value(t, org).NotNil().Required()

	gt.Value(t, org.Name).Equal("Sunrise Project")
	gt.Value(t, org.Abbreviation).Equal("TSP")
	gt.Value(t, org.Website).Equal("https://sunrise.example")
	gt.Bool(t, org.CurrentOrFutureGrantee).True()
	gt.Bool(t, org.PreviousGrants).True()
	gt.Bool(t, org.FutureGrantsInConsideration).True()
	gt.Value(t, org.DisplayNameWithAbbrev()).Equal("Sunrise Project:moneybag::crystal_ball: (TSP)")
	gt.Value(t, org.ProgramNames()).Equal([]string{"Coal", "Oceans"})

	gt.Array(t, org.Contacts).Length(2).Required()
	gt.Value(t, org.Contacts[0].Name()).Equal("Jane Kajute")
	gt.Value(t, org.Contacts[0].Role).Equal("Director")
	gt.Value(t, org.Contacts[0].Notes).Equal("Met at summit")
	gt.Value(t, org.Contacts[1].Email).Equal("")

	grants := org.SortedGrants()
	gt.Array(t, grants).Length(2).Required()
	gt.Value(t, grants[0].Proposal).Equal("Coal campaign")
	gt.Value(t, grants[0].Amount).Equal(50000.0)
	gt.Value(t, grants[0].Currency).Equal("USD")
	gt.Value(t, grants[0].PlannedAmount).Equal(65000.0)
	gt.Value(t, grants[0].StartedAt.Year()).Equal(2020)

	t.Run("unknown and malformed ids", func(t *testing.T) {
		org, err := repo.Organisation().GetDetail(ctx, types.OrganisationID(recID("ORG", 99)))
		gt.NoError(t, err)
		gt.Value(t, org).Nil()

		org, err = repo.Organisation().GetDetail(ctx, "not-an-id")
		gt.NoError(t, err)
		gt.Value(t, org).Nil()
	})
}

func TestAirtable_Search(t *testing.T) {
	repo, fb := newFakeRepository(t, airtable.DefaultPartnerSchema())
	seedPartner(fb)
	ctx := context.Background()

	q, err := model.NewQuery("sunrise")
	gt.NoError(t, err).Required()

	contacts, err := repo.Contact().Search(ctx, q)
	gt.NoError(t, err).Required()
	gt.Array(t, contacts).Length(1).Required()
	gt.Value(t, contacts[0].Name()).Equal("Jane Kajute")
	gt.Array(t, contacts[0].Organisations).Length(1).Required()
	gt.Value(t, contacts[0].NameWithOrgs()).Equal("Jane Kajute [Sunrise Project:moneybag::crystal_ball:]")

	orgs, err := repo.Organisation().Search(ctx, q)
	gt.NoError(t, err).Required()
	gt.Array(t, orgs).Length(1)

	t.Run("metacharacters are literal", func(t *testing.T) {
		q, err := model.NewQuery("^Sun")
		gt.NoError(t, err).Required()
		orgs, err := repo.Organisation().Search(ctx, q)
		gt.NoError(t, err).Required()
		gt.Array(t, orgs).Length(0)
	})

	t.Run("terms that are not valid patterns are searched as text", func(t *testing.T) {
		q, err := model.NewQuery("(Sun")
		gt.NoError(t, err).Required()
		orgs, err := repo.Organisation().Search(ctx, q)
		gt.NoError(t, err).Required()
		gt.Array(t, orgs).Length(0)

		contacts, err := repo.Contact().Search(ctx, q)
		gt.NoError(t, err).Required()
		gt.Array(t, contacts).Length(0)
	})
}

func TestAirtable_MessageWorkflow(t *testing.T) {
	repo, fb := newFakeRepository(t, airtable.DefaultPartnerSchema())
	seedPartner(fb)
	ctx := context.Background()

	input := model.MessageInput{ChannelID: "C1", AuthorSlackID: "U1", TeamID: "T1", TS: "1612345678.000200", Text: "met Jane"}
	msg, err := repo.Message().Upsert(ctx, input)
	gt.NoError(t, err).Required()
	gt.Value(t, msg.ChannelID).Equal("C1")
	gt.Value(t, msg.TS).Equal(input.TS)

	again, err := repo.Message().Upsert(ctx, input)
	gt.NoError(t, err).Required()
	gt.Value(t, again.ID).Equal(msg.ID)
	gt.Array(t, fb.tables["Messages"]).Length(1)

	users, err := repo.User().List(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, users).Length(1)
	gt.Value(t, msg.UserID).Equal(users[0].ID)

	err = repo.Message().SetContacts(ctx, msg.ID, []types.ContactID{types.ContactID(recID("CON", 1))})
	gt.NoError(t, err).Required()

	got, err := repo.Message().Get(ctx, msg.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, got.Contacts).Length(1).Required()
	gt.Value(t, got.Contacts[0].FirstName).Equal("Jane")

	t.Run("unknown contact is rejected", func(t *testing.T) {
		err := repo.Message().SetContacts(ctx, msg.ID, []types.ContactID{types.ContactID(recID("CON", 42))})
		gt.Error(t, err).Is(model.ErrNotFound)

		err = repo.Message().SetContacts(ctx, msg.ID, []types.ContactID{"bogus"})
		gt.Error(t, err).Is(model.ErrNotFound)
	})

	t.Run("repeated contact IDs are stored once", func(t *testing.T) {
		jane := types.ContactID(recID("CON", 1))
		gt.NoError(t, repo.Message().SetContacts(ctx, msg.ID, []types.ContactID{jane, jane})).Required()
		got, err := repo.Message().Get(ctx, msg.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, got.Contacts).Length(1)
	})

	t.Run("empty set clears", func(t *testing.T) {
		gt.NoError(t, repo.Message().SetContacts(ctx, msg.ID, nil)).Required()
		got, err := repo.Message().Get(ctx, msg.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, got.Contacts).Length(0)
	})

	t.Run("unknown message", func(t *testing.T) {
		_, err := repo.Message().Get(ctx, types.MessageID(recID("MSG", 9)))
		gt.Error(t, err).Is(model.ErrNotFound)

		err = repo.Message().SetContacts(ctx, types.MessageID(recID("MSG", 9)), nil)
		gt.Error(t, err).Is(model.ErrNotFound)
	})
}

func TestAirtable_CreateContact(t *testing.T) {
	repo, fb := newFakeRepository(t, airtable.DefaultFunderSchema())
	ctx := context.Background()
	fb.add("Funding organisations", &fakeRecord{
		ID:     recID("ORG", 1),
		Fields: map[string]any{"EC-display": "Big Foundation", "Short name": "Big Foundation"},
	})

	_, err := repo.Contact().Create(ctx, &model.Contact{FirstName: "Ann"})
	gt.Error(t, err).Is(model.ErrValidation)

	c, err := repo.Contact().Create(ctx, &model.Contact{
		FirstName:       "Ann",
		LastName:        "Lee",
		Phone:           "123",
		OrganisationIDs: []types.OrganisationID{types.OrganisationID(recID("ORG", 1))},
	})
	gt.NoError(t, err).Required()
	gt.Value(t, c.Name()).Equal("Ann Lee")
	gt.Array(t, c.Organisations).Length(1)

	stored := fb.tables["Contacts"][0].Fields
	gt.Value(t, stored["Phone"]).Equal("123")
	gt.Value(t, stored["Funding organisations"]).Equal([]any{recID("ORG", 1)})
}

func TestAirtable_Permission(t *testing.T) {
	repo, fb := newFakeRepository(t, airtable.DefaultFunderSchema())
	ctx := context.Background()
	fb.add("Admins", &fakeRecord{ID: recID("ADM", 1), Fields: map[string]any{"EC-slack-username": "jane"}})

	ok, err := repo.Admin().HasPermission(ctx, "jane")
	gt.NoError(t, err).Required()
	gt.Bool(t, ok).True()

	ok, err = repo.Admin().HasPermission(ctx, "bob")
	gt.NoError(t, err).Required()
	gt.Bool(t, ok).False()

	partner, _ := newFakeRepository(t, airtable.DefaultPartnerSchema())
	ok, err = partner.Admin().HasPermission(ctx, "jane")
	gt.NoError(t, err).Required()
	gt.Bool(t, ok).False()
}

func TestAirtable_Unsupported(t *testing.T) {
	repo, _ := newFakeRepository(t, airtable.DefaultFunderSchema())
	ctx := context.Background()

	_, err := repo.Grant().Create(ctx, &model.Grant{Proposal: "x"})
	gt.Error(t, err).Is(airtable.ErrUnsupported)

	_, err = repo.Program().Create(ctx, &model.ProgramArea{Name: "Oceans"})
	gt.Error(t, err).Is(airtable.ErrUnsupported)

	programs, err := repo.Program().List(ctx)
	gt.NoError(t, err)
	gt.Array(t, programs).Length(0)
}

func TestParseContactInfo(t *testing.T) {
	c := airtable.ParseContactInfo("recA|Jane|Kajute|j@x.org|1|Lead|Notes | with pipe")
	gt.Value(t, c.ID).Equal(types.ContactID("recA"))
	gt.Value(t, c.Notes).Equal("Notes | with pipe")

	c = airtable.ParseContactInfo("recB|Bob")
	gt.Value(t, c.FirstName).Equal("Bob")
	gt.Value(t, c.LastName).Equal("")

	gt.Value(t, airtable.ParseContactInfo("  ")).Nil()
}

func TestParseGrantInfo(t *testing.T) {
	g := airtable.ParseGrantInfo("recO", "2021-07|Proposal|https://x|$12,500.50|")
	gt.Value(t, g.StartedAt.Month()).Equal(time.July)
	gt.Value(t, g.Amount).Equal(12500.50)
	gt.Value(t, g.Currency).Equal("")
	gt.Value(t, g.OrganisationID).Equal(types.OrganisationID("recO"))

	again := airtable.ParseGrantInfo("recO", "2021-07|Proposal|https://x|$12,500.50|")
	gt.Value(t, again.ID).Equal(g.ID)

	g = airtable.ParseGrantInfo("recO", "bad|P|||")
	gt.Value(t, g.StartedAt).Nil()
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in       string
		amount   float64
		currency string
	}{
		{"USD 50,000", 50000, "USD"},
		{"20000", 20000, ""},
		{"", 0, ""},
		{"eur 1.5", 1.5, "EUR"},
		{"abc 10", 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			amount, currency := airtable.ParseAmount(tt.in)
			gt.Value(t, amount).Equal(tt.amount)
			gt.Value(t, currency).Equal(tt.currency)
		})
	}
}

func TestValidRecordID(t *testing.T) {
	gt.Bool(t, airtable.ValidRecordID("recABCDEFGHIJKLMN")).True()
	gt.Bool(t, airtable.ValidRecordID("rec123")).False()
	gt.Bool(t, airtable.ValidRecordID("1b4e28ba-2fa1-11d2-883f-0016d3cca427")).False()
}

func TestLoadSchemaFile(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		partner, funder, err := airtable.LoadSchemaFile("")
		gt.NoError(t, err).Required()
		gt.Value(t, partner.Organisations.Table).Equal("Partner Organisations")
		gt.Value(t, funder.Admins.Table).Equal("Admins")
	})

	t.Run("section replaces default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "schema.toml")
		content := `
[funder]
view = "All"

[funder.organisations]
table = "Funders"
display = "Display"
name = "Name"

[funder.contacts]
table = "People"
display = "Display"
first_name = "First"
last_name = "Last"

[funder.messages]
table = "Msgs"
channel_id = "channel"
timestamp = "ts"
contacts = "people"
search_index = "idx"
`
		gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()

		partner, funder, err := airtable.LoadSchemaFile(path)
		gt.NoError(t, err).Required()
		gt.Value(t, partner.Contacts.Phone).Equal("Number")
		gt.Value(t, funder.View).Equal("All")
		gt.Value(t, funder.Organisations.Table).Equal("Funders")
		gt.Value(t, funder.Admins.Table).Equal("")
	})

	t.Run("missing required field", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "schema.toml")
		gt.NoError(t, os.WriteFile(path, []byte("[partner]\nview = \"x\"\n"), 0o600)).Required()
		_, _, err := airtable.LoadSchemaFile(path)
		gt.Value(t, err).NotNil()
	})
}
