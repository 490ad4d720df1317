package firestore

import (
	"context"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/domain/interfaces"
	"google.golang.org/api/iterator"
)

const (
	backendName = "firestore"

	usersCollection         = "users"
	messagesCollection      = "messages"
	contactsCollection      = "contacts"
	organisationsCollection = "organisations"
	programsCollection      = "programs"
	grantsCollection        = "grants"
	adminsCollection        = "admins"

	// Maximum values for an array-contains-any filter and document references
	// per GetAll.
	inQueryLimit = 30
)

// Firestore stores the contact book in Cloud Firestore. Firestore has no
// regex operator, so searches load the candidate collection and filter it
// in process with the same predicate as the memory backend.
type Firestore struct {
	client *firestore.Client
	base   *base
}

var _ interfaces.Repository = &Firestore{}

type base struct {
	client           *firestore.Client
	collectionPrefix string
}

type Option func(*Firestore)

func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.base.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client: client,
		base:   &base{client: client},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *Firestore) Contact() interfaces.ContactRepository {
	return &contactRepository{base: f.base}
}

func (f *Firestore) Organisation() interfaces.OrganisationRepository {
	return &organisationRepository{base: f.base}
}

func (f *Firestore) Message() interfaces.MessageRepository {
	return &messageRepository{base: f.base}
}

func (f *Firestore) User() interfaces.UserRepository {
	return &userRepository{base: f.base}
}

func (f *Firestore) Program() interfaces.ProgramRepository {
	return &programRepository{base: f.base}
}

func (f *Firestore) Grant() interfaces.GrantRepository {
	return &grantRepository{base: f.base}
}

func (f *Firestore) Admin() interfaces.AdminRepository {
	return &adminRepository{base: f.base}
}

func (f *Firestore) Close(ctx context.Context) error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// CollectionName returns the collection name with the prefix applied.
func CollectionName(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}

func (b *base) collection(name string) *firestore.CollectionRef {
	return b.client.Collection(CollectionName(b.collectionPrefix, name))
}

// validDocID rejects IDs that cannot address a document. They are treated
// as unknown IDs.
func validDocID(id string) bool {
	return id != "" && !strings.Contains(id, "/") && id != "." && id != ".."
}

// getAll loads documents by ID in chunks, skipping missing ones.
func getAll[D any](ctx context.Context, b *base, collection string, ids []string) (map[string]*D, error) {
	result := make(map[string]*D, len(ids))
	col := b.collection(collection)

	for i := 0; i < len(ids); i += inQueryLimit {
		end := min(i+inQueryLimit, len(ids))
		refs := make([]*firestore.DocumentRef, 0, end-i)
		for _, id := range ids[i:end] {
			if validDocID(id) {
				refs = append(refs, col.Doc(id))
			}
		}
		if len(refs) == 0 {
			continue
		}

		snaps, err := b.client.GetAll(ctx, refs)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get documents", goerr.V("collection", collection))
		}
		for _, snap := range snaps {
			if !snap.Exists() {
				continue
			}
			var doc D
			if err := snap.DataTo(&doc); err != nil {
				return nil, goerr.Wrap(err, "failed to decode document",
					goerr.V("collection", collection), goerr.V("id", snap.Ref.ID))
			}
			result[snap.Ref.ID] = &doc
		}
	}
	return result, nil
}

// listAll decodes every document returned by iter.
func listAll[D any](iter *firestore.DocumentIterator, collection string) ([]*D, error) {
	defer iter.Stop()

	var docs []*D
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate documents", goerr.V("collection", collection))
		}
		var doc D
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode document",
				goerr.V("collection", collection), goerr.V("id", snap.Ref.ID))
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}
