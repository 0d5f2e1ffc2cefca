package warehouse

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/go-ports/poimap/internal/models"
	"github.com/go-ports/poimap/internal/redaction"
)

const defaultMongoDatabase = "poi"

// MongoSource reads POI documents from a MongoDB collection. Document fields
// play the role of columns; _id is dropped.
type MongoSource struct {
	uri        string
	database   string
	collection string
}

func (s *MongoSource) databaseName() string {
	if s.database == "" {
		return defaultMongoDatabase
	}
	return s.database
}

// Describe implements Source.
func (s *MongoSource) Describe() string {
	return fmt.Sprintf("mongo %s (collection %s.%s)", redaction.Redact(s.uri), s.databaseName(), s.collection)
}

// Fetch implements Source.
func (s *MongoSource) Fetch(ctx context.Context) (*models.Table, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.uri))
	if err != nil {
		return nil, fmt.Errorf("warehouse.MongoSource.Fetch connect: %w", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	coll := client.Database(s.databaseName()).Collection(s.collection)
	cursor, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("warehouse.MongoSource.Fetch: %w", err)
	}
	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("warehouse.MongoSource.Fetch decode: %w", err)
	}

	t := documentsTable(docs)
	slog.Debug("warehouse fetched", "driver", "mongo", "collection", s.collection, "rows", len(t.Records))
	return t, nil
}

func documentsTable(docs []bson.D) *models.Table {
	b := newTableBuilder()
	for _, doc := range docs {
		cols := make([]string, 0, len(doc))
		vals := make([]any, 0, len(doc))
		for _, e := range doc {
			if e.Key == "_id" {
				continue
			}
			cols = append(cols, e.Key)
			vals = append(vals, e.Value)
		}
		b.add(cols, vals)
	}
	return b.result()
}
