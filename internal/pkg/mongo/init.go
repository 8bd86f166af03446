package mongo

import (
	"WhatsInbox/internal/api/config"
	"WhatsInbox/internal/pkg/logger"
	"context"
	log "log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const messageCollection = "messages"

// InitMongo 建立连接并返回 Database 引用，同时初始化索引
func InitMongo(cfg config.MongoConfig) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 建立连接
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URL).
		SetMonitor(logger.NewMongoMonitor()),
	)
	if err != nil {
		return nil, err
	}

	// 检查连通性
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(cfg.Database)
	if err = EnsureIndexes(ctx, db); err != nil {
		return nil, err
	}

	log.Info("MongoDB initialized successfully", "db", cfg.Database)
	return db, nil
}

// EnsureIndexes message_id 唯一索引是幂等写入的基础
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(messageCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "message_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_message_id"),
		},
		{
			Keys:    bson.D{{Key: "meta_message_id", Value: 1}},
			Options: options.Index().SetName("idx_meta_message_id"),
		},
		{
			Keys:    bson.D{{Key: "wa_id", Value: 1}, {Key: "occurred_at", Value: -1}},
			Options: options.Index().SetName("idx_wa_time"),
		},
	})
	return err
}
