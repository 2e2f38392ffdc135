package kvstore

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"cloud.google.com/go/firestore"
	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreConfig holds configuration for the Firestore backend.
type FirestoreConfig struct {
	ProjectID        string `yaml:"project_id"`
	CollectionPrefix string `yaml:"collection_prefix"`
	CredentialsFile  string `yaml:"credentials_file"`
}

// firestoreEntry is the document shape written for each key. The original key
// is kept so a document ID collision reads as a miss rather than wrong data.
type firestoreEntry struct {
	Key   string `firestore:"key"`
	Value string `firestore:"value"`
}

// Firestore is a backend that maps each namespace to a collection. It is
// suitable for low volume deployments; use Redis for high volume.
type Firestore struct {
	client *firestore.Client
	prefix string
	logger zerolog.Logger
}

// NewFirestore creates a Firestore backend over an externally managed client.
func NewFirestore(cfg *FirestoreConfig, client *firestore.Client, logger zerolog.Logger) (*Firestore, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}

	logger.Info().Str("project_id", cfg.ProjectID).Str("collection_prefix", cfg.CollectionPrefix).Msg("Firestore store initialized.")

	return &Firestore{
		client: client,
		prefix: cfg.CollectionPrefix,
		logger: logger.With().Str("component", "FirestoreStore").Logger(),
	}, nil
}

// CollectionName returns the collection that holds a namespace.
func (f *Firestore) CollectionName(namespace string, version int) string {
	name := namespace + "_v" + strconv.Itoa(version)
	if f.prefix != "" {
		name = f.prefix + "_" + name
	}
	return name
}

// DocumentID maps an arbitrary key to a valid Firestore document ID.
func DocumentID(key string) string {
	return strconv.FormatUint(xxhash.Sum64String(key), 16)
}

// Open returns a session on the namespace's collection.
func (f *Firestore) Open(_ context.Context, namespace string, version int) (Store, error) {
	if err := validateOpen(namespace, version); err != nil {
		return nil, err
	}
	collection := f.CollectionName(namespace, version)
	return &firestoreStore{
		collection: f.client.Collection(collection),
		logger:     f.logger.With().Str("collection", collection).Logger(),
	}, nil
}

// Close is a no-op as the Firestore client's lifecycle is managed externally.
func (f *Firestore) Close() error {
	f.logger.Info().Msg("Firestore store does not close the injected Firestore client.")
	return nil
}

type firestoreStore struct {
	collection *firestore.CollectionRef
	logger     zerolog.Logger
	closed     atomic.Bool
}

func (s *firestoreStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	docSnap, err := s.collection.Doc(DocumentID(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("firestore get for %s: %w", key, err)
	}

	var entry firestoreEntry
	if err := docSnap.DataTo(&entry); err != nil {
		return nil, fmt.Errorf("firestore DataTo for %s: %w", key, err)
	}
	if entry.Key != key {
		s.logger.Warn().Str("key", key).Str("stored_key", entry.Key).Msg("Document ID collision, treating as miss.")
		return nil, ErrNotFound
	}
	return []byte(entry.Value), nil
}

func (s *firestoreStore) Set(ctx context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	entry := firestoreEntry{Key: key, Value: string(value)}
	if _, err := s.collection.Doc(DocumentID(key)).Set(ctx, entry); err != nil {
		return fmt.Errorf("firestore set for %s: %w", key, err)
	}
	s.logger.Debug().Str("key", key).Msg("Successfully wrote data to Firestore.")
	return nil
}

func (s *firestoreStore) Close() error {
	s.closed.Store(true)
	return nil
}
