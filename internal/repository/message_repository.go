package repository

import (
	"context"
	"log"
	"time"

	"boardtalk/internal/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepository interface {
	Create(ctx context.Context, message entity.Message) (entity.Message, error)
	GetConversation(ctx context.Context, userId, counterpartId string) ([]entity.Message, error)
	// MarkConversationRead flips every unread message from senderId to
	// recipientId in one update and returns the ids it flipped.
	MarkConversationRead(ctx context.Context, recipientId, senderId string) ([]string, error)
	CountUnread(ctx context.Context, recipientId string) (int64, error)
	CountUnreadBySender(ctx context.Context, recipientId string) (map[string]int64, error)
}

type messageRepository struct {
	db mongo.Database
}

func NewMessageRepository(db mongo.Database) MessageRepository {
	return &messageRepository{
		db: db,
	}
}

func (r *messageRepository) Create(ctx context.Context, message entity.Message) (entity.Message, error) {
	collection := r.db.Collection("messages")
	// Version 7 ids increase within the process, so they order messages
	// created in the same millisecond.
	id, err := uuid.NewV7()
	if err != nil {
		return entity.Message{}, err
	}
	message.Id = id.String()
	// Mongo stores milliseconds; truncate so the returned value matches a re-read.
	message.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	message.IsRead = false

	if _, err := collection.InsertOne(ctx, message); err != nil {
		return entity.Message{}, err
	}

	return message, nil
}

func (r *messageRepository) GetConversation(ctx context.Context, userId, counterpartId string) ([]entity.Message, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{
		"$or": bson.A{
			bson.M{"senderId": userId, "recipientId": counterpartId},
			bson.M{"senderId": counterpartId, "recipientId": userId},
		},
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []entity.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *messageRepository) MarkConversationRead(ctx context.Context, recipientId, senderId string) ([]string, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{"recipientId": recipientId, "senderId": senderId, "isRead": false}
	return claimUnread(ctx, collection, filter, bson.M{"readAt": time.Now().UTC()})
}

func (r *messageRepository) CountUnread(ctx context.Context, recipientId string) (int64, error) {
	collection := r.db.Collection("messages")
	return collection.CountDocuments(ctx, bson.M{"recipientId": recipientId, "isRead": false})
}

func (r *messageRepository) CountUnreadBySender(ctx context.Context, recipientId string) (map[string]int64, error) {
	collection := r.db.Collection("messages")
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"recipientId": recipientId, "isRead": false}}},
		{{Key: "$group", Value: bson.M{"_id": "$senderId", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		SenderId string `bson:"_id"`
		Count    int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.SenderId] = row.Count
	}
	return counts, nil
}

// claimUnread lists the documents matching filter, then flips exactly those
// that are still unread. Nothing is written until the candidate ids are known.
// When a concurrent reader claimed some of them first, the ids tagged with this
// call's batch are read back.
func claimUnread(ctx context.Context, collection *mongo.Collection, filter, set bson.M) ([]string, error) {
	candidates, err := findIds(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []string{}, nil
	}

	batchId := uuid.New().String()
	fields := bson.M{"isRead": true, "readBatch": batchId}
	for k, v := range set {
		fields[k] = v
	}

	claim := bson.M{"_id": bson.M{"$in": candidates}, "isRead": false}
	result, err := collection.UpdateMany(ctx, claim, bson.M{"$set": fields})
	if err != nil {
		return nil, err
	}
	if result.ModifiedCount == int64(len(candidates)) {
		return candidates, nil
	}
	if result.ModifiedCount == 0 {
		return []string{}, nil
	}

	claimed, err := findIds(ctx, collection, bson.M{"readBatch": batchId})
	if err != nil {
		// The update is committed; report the candidates rather than fail a
		// call whose writes already happened.
		log.Printf("[read-state] batch %s read-back failed, reporting candidates: %v", batchId, err)
		return candidates, nil
	}
	return claimed, nil
}

func findIds(ctx context.Context, collection *mongo.Collection, filter bson.M) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Id string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.Id)
	}
	return ids, nil
}
