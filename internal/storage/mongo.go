package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/hyperjump/oncovec/internal/models"
)

const (
	mongoDocumentsCollection = "documents"
	mongoMappingsCollection  = "faiss_mappings"
)

// MongoStorage implements Storage on MongoDB. With transactions enabled (replica
// set or sharded cluster) CommitEntries uses a multi-document transaction;
// otherwise it removes whatever it inserted when a later insert fails.
type MongoStorage struct {
	client       *mongo.Client
	database     string
	documents    *mongo.Collection
	mappings     *mongo.Collection
	transactions bool
	logger       *zap.Logger
}

// mongoMapping is the stored shape of a mapping entry.
type mongoMapping struct {
	Position   int64     `bson:"position"`
	DocumentID string    `bson:"document_id"`
	Embedding  []byte    `bson:"embedding"`
	CreatedAt  time.Time `bson:"created_at"`
}

// MongoOption configures a MongoStorage.
type MongoOption func(*MongoStorage)

// WithMongoLogger sets a logger for compensation warnings.
func WithMongoLogger(l *zap.Logger) MongoOption {
	return func(s *MongoStorage) { s.logger = l }
}

// WithTransactions enables multi-document transactions for CommitEntries.
func WithTransactions(enabled bool) MongoOption {
	return func(s *MongoStorage) { s.transactions = enabled }
}

// NewMongoStorage connects to uri, selects database, and ensures indexes.
func NewMongoStorage(ctx context.Context, uri, database string, opts ...MongoOption) (*MongoStorage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	db := client.Database(database)
	s := &MongoStorage{
		client:    client,
		database:  database,
		documents: db.Collection(mongoDocumentsCollection),
		mappings:  db.Collection(mongoMappingsCollection),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStorage) ensureIndexes(ctx context.Context) error {
	_, err := s.mappings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "position", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "document_id", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = s.documents.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "checksum", Value: 1}},
	})
	return err
}

// CommitEntries inserts docs then entries as one unit.
func (s *MongoStorage) CommitEntries(ctx context.Context, docs []*models.Document, entries []*models.MappingEntry) error {
	now := time.Now().UTC()
	docRows := make([]interface{}, len(docs))
	docIDs := make([]string, len(docs))
	for i, doc := range docs {
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		docRows[i] = doc
		docIDs[i] = doc.ID
	}
	mapRows := make([]interface{}, len(entries))
	positions := make([]int64, len(entries))
	owners := make([]string, len(entries))
	for i, e := range entries {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		mapRows[i] = mongoMapping{
			Position:   e.Position,
			DocumentID: e.DocumentID,
			Embedding:  EncodeVector(e.Vector),
			CreatedAt:  e.CreatedAt,
		}
		positions[i] = e.Position
		owners[i] = e.DocumentID
	}

	insert := func(ctx context.Context) error {
		if len(docRows) > 0 {
			if _, err := s.documents.InsertMany(ctx, docRows); err != nil {
				return fmt.Errorf("insert documents: %w", err)
			}
		}
		if len(mapRows) > 0 {
			if _, err := s.mappings.InsertMany(ctx, mapRows); err != nil {
				return fmt.Errorf("insert mappings: %w", err)
			}
		}
		return nil
	}

	if s.transactions {
		session, err := s.client.StartSession()
		if err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		defer session.EndSession(ctx)
		_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			return nil, insert(sc)
		})
		return err
	}

	if err := insert(ctx); err != nil {
		s.compensate(docIDs, positions, owners)
		return err
	}
	return nil
}

// compensate removes rows a failed non-transactional commit may have written.
// Mappings are matched on position and owner so a pre-existing entry at a
// colliding position is left alone. It uses a fresh context so a cancelled
// request still gets cleaned up.
func (s *MongoStorage) compensate(docIDs []string, positions []int64, owners []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if len(positions) > 0 {
		filter := bson.M{
			"position":    bson.M{"$in": positions},
			"document_id": bson.M{"$in": owners},
		}
		if _, err := s.mappings.DeleteMany(ctx, filter); err != nil {
			s.logger.Warn("mongo compensation: delete mappings failed", zap.Int64s("positions", positions), zap.Error(err))
		}
	}
	if len(docIDs) > 0 {
		if _, err := s.documents.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": docIDs}}); err != nil {
			s.logger.Warn("mongo compensation: delete documents failed", zap.Strings("ids", docIDs), zap.Error(err))
		}
	}
}

// GetDocument returns a document by ID.
func (s *MongoStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.documents.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindDocumentByChecksum returns the oldest document with the given checksum.
func (s *MongoStorage) FindDocumentByChecksum(ctx context.Context, checksum string) (*models.Document, error) {
	var doc models.Document
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})
	err := s.documents.FindOne(ctx, bson.M{"checksum": checksum}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("checksum %s: %w", checksum, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns documents newest first with offset and limit.
func (s *MongoStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := s.documents.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []*models.Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// GetMapping returns the mapping entry at position.
func (s *MongoStorage) GetMapping(ctx context.Context, position int64) (*models.MappingEntry, error) {
	var m mongoMapping
	opts := options.FindOne().SetProjection(bson.M{"embedding": 0})
	err := s.mappings.FindOne(ctx, bson.M{"position": position}, opts).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("mapping %d: %w", position, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &models.MappingEntry{Position: m.Position, DocumentID: m.DocumentID, CreatedAt: m.CreatedAt}, nil
}

// ListMappings returns entries from position onward with their vectors.
func (s *MongoStorage) ListMappings(ctx context.Context, from int64) ([]*models.MappingEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cur, err := s.mappings.Find(ctx, bson.M{"position": bson.M{"$gte": from}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var entries []*models.MappingEntry
	for cur.Next(ctx) {
		var m mongoMapping
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		vec, err := DecodeVector(m.Embedding)
		if err != nil {
			return nil, fmt.Errorf("mapping %d: %w", m.Position, err)
		}
		entries = append(entries, &models.MappingEntry{
			Position:   m.Position,
			DocumentID: m.DocumentID,
			Vector:     vec,
			CreatedAt:  m.CreatedAt,
		})
	}
	return entries, cur.Err()
}

// CountDocuments returns the total number of documents.
func (s *MongoStorage) CountDocuments(ctx context.Context) (int64, error) {
	return s.documents.CountDocuments(ctx, bson.D{})
}

// CountMappings returns the total number of mapping entries.
func (s *MongoStorage) CountMappings(ctx context.Context) (int64, error) {
	return s.mappings.CountDocuments(ctx, bson.D{})
}

// Describe returns the database name.
func (s *MongoStorage) Describe() string {
	return "mongo:" + s.database
}

// Close disconnects the client.
func (s *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Storage = (*MongoStorage)(nil)
