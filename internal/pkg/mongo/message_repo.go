package mongo

import (
	"WhatsInbox/internal/model"
	"WhatsInbox/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type messageRepoImpl struct {
	col *mongo.Collection
}

// NewMessageRepo MongoDB 版消息存储
func NewMessageRepo(db *mongo.Database) repository.MessageRepo {
	return &messageRepoImpl{
		col: db.Collection(messageCollection),
	}
}

var withoutPayload = bson.D{{Key: "raw_payload", Value: 0}}

// UpsertIfAbsent 依赖唯一索引，重复键时返回已存在的记录
func (s *messageRepoImpl) UpsertIfAbsent(ctx context.Context, msg *model.Message) (*model.Message, bool, error) {
	now := time.Now()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now

	_, err := s.col.InsertOne(ctx, msg)
	if err == nil {
		return msg, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, repository.WrapStorage("insert message", err)
	}

	var existing model.Message
	if err = s.col.FindOne(ctx, bson.M{"message_id": msg.MessageID}).Decode(&existing); err != nil {
		return nil, false, repository.WrapStorage("load existing message", err)
	}
	return &existing, false, nil
}

// FindByEitherID 空 id 不参与 $or，避免匹配到缺失字段的文档
func (s *messageRepoImpl) FindByEitherID(ctx context.Context, messageID, metaMessageID string) (*model.Message, error) {
	var or bson.A
	if messageID != "" {
		or = append(or, bson.M{"message_id": messageID})
	}
	if metaMessageID != "" {
		or = append(or, bson.M{"meta_message_id": metaMessageID})
	}
	if len(or) == 0 {
		return nil, repository.ErrMessageNotFound
	}

	var msg model.Message
	err := s.col.FindOne(ctx, bson.M{"$or": or}, options.FindOne().SetProjection(withoutPayload)).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrMessageNotFound
	}
	if err != nil {
		return nil, repository.WrapStorage("find message", err)
	}
	return &msg, nil
}

// UpdateStatus 覆盖写状态
func (s *messageRepoImpl) UpdateStatus(ctx context.Context, msg *model.Message, status model.Status) error {
	now := time.Now()
	_, err := s.col.UpdateOne(ctx,
		bson.M{"message_id": msg.MessageID},
		bson.M{"$set": bson.M{"status": status, "updated_at": now}},
	)
	if err != nil {
		return repository.WrapStorage("update status", err)
	}
	msg.Status = status
	msg.UpdatedAt = now
	return nil
}

// QueryByConversation 按发生时间升序（最旧在前），pageSize <= 0 时不分页
func (s *messageRepoImpl) QueryByConversation(ctx context.Context, waID string, page, pageSize int) ([]*model.Message, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(withoutPayload)
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		findOptions.SetSkip(int64((page - 1) * pageSize)).SetLimit(int64(pageSize))
	}

	cursor, err := s.col.Find(ctx, bson.M{"wa_id": waID}, findOptions)
	if err != nil {
		return nil, repository.WrapStorage("query conversation", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	messages := make([]*model.Message, 0)
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, repository.WrapStorage("decode messages", err)
	}
	return messages, nil
}

// MarkIncomingAsRead 会话内未读入站消息批量置为已读
func (s *messageRepoImpl) MarkIncomingAsRead(ctx context.Context, waID string) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{
			"wa_id":     waID,
			"direction": model.DirectionIncoming,
			"status":    bson.M{"$ne": model.StatusRead},
		},
		bson.M{"$set": bson.M{"status": model.StatusRead, "updated_at": time.Now()}},
	)
	if err != nil {
		return 0, repository.WrapStorage("mark read", err)
	}
	return res.ModifiedCount, nil
}

// AggregateConversations 先按时间排序再分组，$first/$last 依赖该顺序
func (s *messageRepoImpl) AggregateConversations(ctx context.Context) ([]*model.Conversation, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "occurred_at", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$wa_id"},
			{Key: "contact_name", Value: bson.M{"$first": "$contact_name"}},
			{Key: "last_message", Value: bson.M{"$last": "$content"}},
			{Key: "last_message_time", Value: bson.M{"$last": "$occurred_at"}},
			{Key: "last_message_status", Value: bson.M{"$last": "$status"}},
			{Key: "unread_count", Value: bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$direction", model.DirectionIncoming}},
					bson.M{"$ne": bson.A{"$status", model.StatusRead}},
				}},
				1,
				0,
			}}}},
			{Key: "total_messages", Value: bson.M{"$sum": 1}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "last_message_time", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cursor, err := s.col.Aggregate(ctx, pipeline, options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		return nil, repository.WrapStorage("aggregate conversations", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	conversations := make([]*model.Conversation, 0)
	if err = cursor.All(ctx, &conversations); err != nil {
		return nil, repository.WrapStorage("decode conversations", err)
	}
	return conversations, nil
}

// PruneRawPayloads 移除过期的原始报文字段
func (s *messageRepoImpl) PruneRawPayloads(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{
			"created_at":  bson.M{"$lt": before},
			"raw_payload": bson.M{"$exists": true},
		},
		bson.M{"$unset": bson.M{"raw_payload": ""}},
	)
	if err != nil {
		return 0, repository.WrapStorage("prune raw payloads", err)
	}
	return res.ModifiedCount, nil
}
