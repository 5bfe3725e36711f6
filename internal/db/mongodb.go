package db

import (
	"context"
	"fmt"
	"time"

	"github.com/madiallo/banque-backoffice/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ArchiveMongo is the secondary document store. Each calendar week
// gets its own collection, named after the week's Monday
// (transactions_semaine_YYYY_MM_DD).
type ArchiveMongo struct {
	client   *mongo.Client
	database *mongo.Database
}

// creates a new ArchiveMongo instance
func NewArchiveMongo(uri, dbName string) (*ArchiveMongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &ArchiveMongo{
		client:   client,
		database: client.Database(dbName),
	}, nil
}

// closes the mongoDB connection
func (m *ArchiveMongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// UpsertArchived writes a transaction copy into the named weekly
// partition. The document is keyed by the source transaction id, so
// re-archiving the same week replaces rather than duplicates.
func (m *ArchiveMongo) UpsertArchived(ctx context.Context, partition string, at *models.ArchivedTransaction) error {
	collection := m.database.Collection(partition)

	opts := options.Replace().SetUpsert(true)
	_, err := collection.ReplaceOne(ctx, bson.M{"_id": at.ID}, at, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert archived transaction: %w", err)
	}
	return nil
}

// ListPartition retrieves every archived transaction in a weekly
// partition, oldest first.
func (m *ArchiveMongo) ListPartition(ctx context.Context, partition string) ([]*models.ArchivedTransaction, error) {
	collection := m.database.Collection(partition)

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find archived transactions: %w", err)
	}
	defer cursor.Close(ctx)

	archived := make([]*models.ArchivedTransaction, 0)
	if err := cursor.All(ctx, &archived); err != nil {
		return nil, fmt.Errorf("failed to decode archived transactions: %w", err)
	}
	return archived, nil
}
