package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoBackend stores entries as documents of one collection.
type MongoBackend struct {
	collection *mongo.Collection
}

// NewMongoBackend creates a MongoBackend over db's kv_records collection
func NewMongoBackend(db *mongo.Database) *MongoBackend {
	return &MongoBackend{collection: db.Collection("kv_records")}
}

func (b *MongoBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var doc kvDocument
	if err := b.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.Value, nil
}

func (b *MongoBackend) Put(ctx context.Context, key string, value []byte) error {
	update := bson.M{"$set": bson.M{"value": value, "updated_at": time.Now()}}
	_, err := b.collection.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	return err
}

func (b *MongoBackend) Delete(ctx context.Context, key string) error {
	_, err := b.collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (b *MongoBackend) Keys(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := b.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		Key string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	keys := make([]string, len(docs))
	for i, d := range docs {
		keys[i] = d.Key
	}
	return keys, nil
}

func (b *MongoBackend) Usage(ctx context.Context) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"bytes": bson.M{"$sum": bson.M{"$add": bson.A{
				bson.M{"$strLenBytes": "$_id"},
				bson.M{"$binarySize": "$value"},
			}}},
		}}},
	}
	cursor, err := b.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var out []struct {
		Bytes int64 `bson:"bytes"`
	}
	if err := cursor.All(ctx, &out); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Bytes, nil
}
