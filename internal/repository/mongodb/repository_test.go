package mongodb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/mamadbah2/nogal/internal/domain/models"
)

func TestListOptions(t *testing.T) {
	opts := listOptions(20)
	assert.Equal(t, bson.D{{Key: "created_at", Value: -1}}, opts.Sort)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(20), *opts.Limit)

	assert.Nil(t, listOptions(0).Limit, "no limit returns every snapshot")
}

func TestSnapshotRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	repoFor := func(mt *mtest.T) *SnapshotRepository {
		return &SnapshotRepository{client: mt.Client, dbName: mt.DB.Name(), collName: mt.Coll.Name()}
	}

	mt.Run("list newest first", func(mt *mtest.T) {
		ns := fmt.Sprintf("%s.%s", mt.DB.Name(), mt.Coll.Name())
		created := time.Date(2025, time.October, 6, 8, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "s2"},
				{Key: "project_id", Value: "p1"},
				{Key: "year", Value: 2025},
				{Key: "real_kg", Value: 3500.0},
				{Key: "created_at", Value: created},
			},
			bson.D{
				{Key: "_id", Value: "s1"},
				{Key: "project_id", Value: "p1"},
				{Key: "year", Value: 2024},
				{Key: "created_at", Value: created.AddDate(0, 0, -7)},
			},
		))

		snapshots, err := repoFor(mt).ListSnapshots(context.Background(), "p1", 5)
		require.NoError(t, err)
		require.Len(t, snapshots, 2)
		assert.Equal(t, "s2", snapshots[0].ID)
		assert.Equal(t, 3500.0, snapshots[0].RealKg)
		assert.True(t, created.Equal(snapshots[0].CreatedAt))

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		require.Equal(t, "find", started.CommandName)
		assert.Equal(t, "p1", started.Command.Lookup("filter", "project_id").StringValue())
		assert.Equal(t, int64(-1), started.Command.Lookup("sort", "created_at").AsInt64())
		assert.Equal(t, int64(5), started.Command.Lookup("limit").AsInt64())
	})

	mt.Run("save", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		err := repoFor(mt).SaveSnapshot(context.Background(), models.CampaignSnapshot{ID: "s3", ProjectID: "p1", Year: 2025})
		require.NoError(t, err)

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "insert", started.CommandName)
	})

	mt.Run("save failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))
		err := repoFor(mt).SaveSnapshot(context.Background(), models.CampaignSnapshot{ID: "s3"})
		require.ErrorContains(t, err, "failed to insert campaign snapshot")
	})
}
