package history

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	firestore "google.golang.org/api/firestore/v1"
	"google.golang.org/api/option"
)

// DefaultCollection is the Firestore collection records are written to.
const DefaultCollection = "visionTests"

// FirestoreConfig configures the remote sink.
type FirestoreConfig struct {
	ProjectID       string
	Database        string // default "(default)"
	Collection      string // default DefaultCollection
	CredentialsFile string // service account JSON; empty uses application default credentials

	// HTTPClient is the base transport for token and API requests.
	HTTPClient *http.Client
}

// FirestoreSink appends records as documents through the Firestore REST API.
type FirestoreSink struct {
	docs       *firestore.ProjectsDatabasesDocumentsService
	parent     string
	collection string
}

// NewFirestoreSink authenticates and creates the sink.
func NewFirestoreSink(ctx context.Context, cfg FirestoreConfig) (*FirestoreSink, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("%w: firestore project id required", ErrNotConfigured)
	}
	if cfg.Database == "" {
		cfg.Database = "(default)"
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}

	creds, err := loadCredentials(ctx, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	svc, err := firestore.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, creds.TokenSource)))
	if err != nil {
		return nil, fmt.Errorf("create firestore service: %w", err)
	}

	return newFirestoreSink(svc, cfg.ProjectID, cfg.Database, cfg.Collection), nil
}

func newFirestoreSink(svc *firestore.Service, projectID, database, collection string) *FirestoreSink {
	return &FirestoreSink{
		docs:       svc.Projects.Databases.Documents,
		parent:     fmt.Sprintf("projects/%s/databases/%s/documents", projectID, database),
		collection: collection,
	}
}

func loadCredentials(ctx context.Context, file string) (*google.Credentials, error) {
	if file == "" {
		creds, err := google.FindDefaultCredentials(ctx, firestore.DatastoreScope)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
		}
		return creds, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, firestore.DatastoreScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, nil
}

// Append creates one document per record, using the record ID as the
// document ID.
func (s *FirestoreSink) Append(ctx context.Context, rec Record) (Receipt, error) {
	doc, err := s.docs.CreateDocument(s.parent, s.collection, toDocument(rec)).
		DocumentId(rec.ID).
		Context(ctx).
		Do()
	if err != nil {
		return Receipt{}, fmt.Errorf("firestore create document: %w", err)
	}

	id := rec.ID
	if doc != nil && doc.Name != "" {
		id = path.Base(doc.Name)
	}
	return Receipt{ID: id}, nil
}

// toDocument maps a record onto Firestore typed values. Zero doubles must be
// force-sent or the value would encode as empty.
func toDocument(rec Record) *firestore.Document {
	when := rec.When
	if when.IsZero() {
		when = time.Now()
	}
	return &firestore.Document{
		Fields: map[string]firestore.Value{
			"when":        {TimestampValue: when.UTC().Format(time.RFC3339Nano)},
			"rightEye":    {StringValue: rec.RightEye},
			"leftEye":     {StringValue: rec.LeftEye},
			"rightLogmar": doubleValue(rec.RightLogMAR),
			"leftLogmar":  doubleValue(rec.LeftLogMAR),
		},
	}
}

func doubleValue(v float64) firestore.Value {
	return firestore.Value{DoubleValue: v, ForceSendFields: []string{"DoubleValue"}}
}
