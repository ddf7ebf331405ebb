package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB holds the database connections
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
	Redis    *redis.Client

	logger *zap.Logger
}

// InitDB connects to PostgreSQL, plus MongoDB or Redis when the storage
// backend needs them
func InitDB(cfg *Config, logger *zap.Logger) (*DB, error) {
	db := &DB{logger: logger}

	postgresDB, err := initPostgres(cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	db.Postgres = postgresDB
	logger.Info("Successfully connected to PostgreSQL!")

	switch cfg.StorageBackend {
	case StorageMongo:
		mongoClient, err := initMongo(cfg.MongoURI)
		if err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		db.Mongo = mongoClient
		logger.Info("Successfully connected to MongoDB!")
	case StorageRedis:
		redisClient, err := initRedis(cfg.RedisURL)
		if err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		db.Redis = redisClient
		logger.Info("Successfully connected to Redis!")
	}

	return db, nil
}

// initPostgres initializes the PostgreSQL database connection using GORM
func initPostgres(connStr string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// initMongo initializes the MongoDB connection
func initMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

func initRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// CloseDB closes the database connections
func (db *DB) CloseDB() {
	if db.Postgres != nil {
		sqlDB, err := db.Postgres.DB()
		if err != nil {
			db.logger.Error("Error getting SQL DB from GORM", zap.Error(err))
		} else if err := sqlDB.Close(); err != nil {
			db.logger.Error("Error closing PostgreSQL connection", zap.Error(err))
		} else {
			db.logger.Info("PostgreSQL connection closed.")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			db.logger.Error("Error closing MongoDB connection", zap.Error(err))
		} else {
			db.logger.Info("MongoDB connection closed.")
		}
	}

	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			db.logger.Error("Error closing Redis connection", zap.Error(err))
		} else {
			db.logger.Info("Redis connection closed.")
		}
	}
}
