package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/nogal/internal/domain/models"
)

const snapshotCollection = "campaign_snapshots"

// SnapshotRepository implements repository.SnapshotRepository for MongoDB.
type SnapshotRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewSnapshotRepository connects to MongoDB and returns the snapshot archive.
func NewSnapshotRepository(ctx context.Context, uri string, dbName string) (*SnapshotRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &SnapshotRepository{
		client:   client,
		dbName:   dbName,
		collName: snapshotCollection,
	}, nil
}

func (r *SnapshotRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

// SaveSnapshot stores a campaign snapshot.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, snapshot models.CampaignSnapshot) error {
	_, err := r.collection().InsertOne(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("failed to insert campaign snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns the snapshots of a project, newest first. A limit of
// zero or less returns all of them.
func (r *SnapshotRepository) ListSnapshots(ctx context.Context, projectID string, limit int) ([]models.CampaignSnapshot, error) {
	cursor, err := r.collection().Find(ctx, bson.M{"project_id": projectID}, listOptions(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var snapshots []models.CampaignSnapshot
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode campaign snapshots: %w", err)
	}
	return snapshots, nil
}

func listOptions(limit int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

// Close closes the MongoDB connection.
func (r *SnapshotRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
