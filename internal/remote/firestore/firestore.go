// Package firestore backs remote.Store with a Cloud Firestore database.
// Each user owns the collection users/{uid}/transactions; document identity
// is the transaction id and createdAt is server-assigned.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	fs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sukratu-design/amex-points-tracker/internal/core"
	"github.com/sukratu-design/amex-points-tracker/internal/remote"
)

type Store struct {
	client *fs.Client
}

var _ remote.Store = (*Store)(nil)

// New creates a Firestore-backed store for the given project.
func New(ctx context.Context, projectID string, opts ...option.ClientOption) (*Store, error) {
	client, err := fs.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

// NewFromEnv creates a store using environment variables.
// Required: FIRESTORE_PROJECT_ID
// Optional: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS for auth.
func NewFromEnv(ctx context.Context) (*Store, error) {
	projectID := strings.TrimSpace(os.Getenv("FIRESTORE_PROJECT_ID"))
	if projectID == "" {
		return nil, errors.New("missing FIRESTORE_PROJECT_ID")
	}

	opts, err := credentialOptions(ctx)
	if err != nil {
		return nil, err
	}

	return New(ctx, projectID, opts...)
}

// credentialOptions resolves client options from the same credential
// environment variables the identity provider uses. An empty slice falls
// back to application default credentials.
func credentialOptions(ctx context.Context) ([]option.ClientOption, error) {
	inlineJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	credFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	switch {
	case inlineJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials for Firestore")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(inlineJSON))}, nil
	case credFile != "":
		data, err := os.ReadFile(credFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Using service account file for Firestore", "path", credFile)
		return []option.ClientOption{option.WithCredentialsJSON(data)}, nil
	default:
		// GOOGLE_APPLICATION_CREDENTIALS is picked up by the client itself.
		return nil, nil
	}
}

func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Store) Collection(userID string) remote.Collection {
	return &userCollection{client: s.client, userID: userID}
}

type userCollection struct {
	client *fs.Client
	userID string
}

// transactionDoc holds every Transaction field except the id, which is the
// document identity, and with a server-assigned creation timestamp.
type transactionDoc struct {
	Card        string    `firestore:"card"`
	AmountCents int64     `firestore:"amountCents"`
	Category    string    `firestore:"category"`
	Date        time.Time `firestore:"date"`
	Description string    `firestore:"description,omitempty"`
	Points      int64     `firestore:"points"`
	CreatedAt   time.Time `firestore:"createdAt,serverTimestamp"`
}

func (c *userCollection) ref() *fs.CollectionRef {
	return c.client.Collection("users").Doc(c.userID).Collection("transactions")
}

func (c *userCollection) query() fs.Query {
	return c.ref().OrderBy("createdAt", fs.Desc)
}

func (c *userCollection) FetchAll(ctx context.Context) ([]core.Transaction, error) {
	iter := c.query().Documents(ctx)
	defer iter.Stop()

	out := []core.Transaction{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify("fetch documents", err)
		}
		out = append(out, decode(snap))
	}
	return out, nil
}

func (c *userCollection) Add(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	ref, _, err := c.ref().Add(ctx, encode(t))
	if err != nil {
		return core.Transaction{}, classify("add document", err)
	}

	// Read back for the server-assigned creation timestamp.
	snap, err := ref.Get(ctx)
	if err != nil {
		return core.Transaction{}, classify("read added document", err)
	}
	return decode(snap), nil
}

func (c *userCollection) Remove(ctx context.Context, id string) error {
	if _, err := c.ref().Doc(id).Delete(ctx); err != nil {
		return classify("delete document", err)
	}
	return nil
}

func (c *userCollection) Listen(ctx context.Context, onChange func([]core.Transaction), onError func(error)) {
	snaps := c.query().Snapshots(ctx)
	defer snaps.Stop()

	for {
		qs, err := snaps.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return
			}
			onError(classify("snapshot listener", err))
			return
		}

		list := []core.Transaction{}
		for {
			snap, err := qs.Documents.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				onError(classify("snapshot documents", err))
				return
			}
			list = append(list, decode(snap))
		}
		onChange(list)
	}
}

func encode(t core.Transaction) transactionDoc {
	return transactionDoc{
		Card:        string(t.Card),
		AmountCents: t.Amount.Cents,
		Category:    string(t.Category),
		Date:        t.Date.Time,
		Description: t.Description,
		Points:      t.Points,
	}
}

func decode(snap *fs.DocumentSnapshot) core.Transaction {
	var doc transactionDoc
	if err := snap.DataTo(&doc); err != nil {
		slog.Warn("Skipping undecodable transaction document",
			"id", snap.Ref.ID, "error", err)
		return core.Transaction{ID: snap.Ref.ID}
	}
	return core.Transaction{
		ID:          snap.Ref.ID,
		Card:        core.CardType(doc.Card),
		Amount:      core.Money{Cents: doc.AmountCents},
		Category:    core.Category(doc.Category),
		Date:        core.Date{Time: doc.Date},
		Description: doc.Description,
		Points:      doc.Points,
		CreatedAt:   doc.CreatedAt,
	}
}

// classify annotates a Firestore failure with its gRPC status code so sync
// status messages distinguish permission problems from plain outages.
func classify(op string, err error) error {
	if st, ok := status.FromError(err); ok {
		return fmt.Errorf("%s (%s): %w", op, st.Code(), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
