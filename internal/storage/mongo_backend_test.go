package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const kvNamespace = "voxmarket.kv_records"

func TestMongoBackend(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get", func(mt *mtest.T) {
		b := &MongoBackend{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, kvNamespace, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "messages"},
			{Key: "value", Value: []byte(`{"v":1,"data":[]}`)},
		}))

		v, err := b.Get(context.Background(), "messages")
		require.NoError(mt, err)
		assert.JSONEq(mt, `{"v":1,"data":[]}`, string(v))
	})

	mt.Run("get missing", func(mt *mtest.T) {
		b := &MongoBackend{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, kvNamespace, mtest.FirstBatch))

		_, err := b.Get(context.Background(), "absent")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("put upserts", func(mt *mtest.T) {
		b := &MongoBackend{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "draft"}}}},
		))

		require.NoError(mt, b.Put(context.Background(), "draft", []byte("[]")))

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)
	})

	mt.Run("keys", func(mt *mtest.T) {
		b := &MongoBackend{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, kvNamespace, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "escrowTransactions"}},
			bson.D{{Key: "_id", Value: "messages"}},
		))

		keys, err := b.Keys(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, []string{"escrowTransactions", "messages"}, keys)
	})

	mt.Run("usage", func(mt *mtest.T) {
		b := &MongoBackend{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, kvNamespace, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: nil}, {Key: "bytes", Value: int64(4096)}},
		))

		used, err := b.Usage(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, int64(4096), used)
	})

	mt.Run("usage of empty collection", func(mt *mtest.T) {
		b := &MongoBackend{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, kvNamespace, mtest.FirstBatch))

		used, err := b.Usage(context.Background())
		require.NoError(mt, err)
		assert.Zero(mt, used)
	})
}
