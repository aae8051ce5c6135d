package mongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"workflow/internal/storage"
)

type document struct {
	Name      string    `bson:"_id"`
	Payload   string    `bson:"payload"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store keeps every collection as one document of the "collections"
// MongoDB collection, keyed by collection name.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// Open connects to uri and pings the server before returning.
func Open(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("empty mongodb uri")
	}
	if database == "" {
		database = "workflow"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	logger.Debug("mongodb store ready", slog.String("database", database))
	return &Store{
		client:     client,
		collection: client.Database(database).Collection("collections"),
		logger:     logger,
	}, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Get returns the stored payload of a collection.
func (s *Store) Get(ctx context.Context, collection string) ([]byte, error) {
	var doc document
	err := s.collection.FindOne(ctx, bson.M{"_id": collection}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotStored
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return []byte(doc.Payload), nil
}

// Set overwrites the payload of a collection.
func (s *Store) Set(ctx context.Context, collection string, payload []byte) error {
	doc := document{Name: collection, Payload: string(payload), UpdatedAt: time.Now().UTC()}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": collection}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set collection: %w", err)
	}
	return nil
}
