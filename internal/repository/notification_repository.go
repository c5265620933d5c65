package repository

import (
	"context"
	"errors"
	"time"

	"boardtalk/internal/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification entity.Notification) (entity.Notification, error)
	Get(ctx context.Context, notificationId string) (entity.Notification, error)
	GetLatest(ctx context.Context, userId string, limit int) ([]entity.Notification, error)
	// MarkAllRead flips every unread notification of userId in one update and
	// returns the ids it flipped.
	MarkAllRead(ctx context.Context, userId string) ([]string, error)
	MarkRead(ctx context.Context, notificationId string) (bool, error)
	// ExistsForCardBetween reports whether a notification for cardId was
	// created in [from, to).
	ExistsForCardBetween(ctx context.Context, cardId string, from, to time.Time) (bool, error)
}

type notificationRepository struct {
	db mongo.Database
}

func NewNotificationRepository(db mongo.Database) NotificationRepository {
	return &notificationRepository{
		db: db,
	}
}

func (r *notificationRepository) Create(ctx context.Context, notification entity.Notification) (entity.Notification, error) {
	collection := r.db.Collection("notifications")
	id, err := uuid.NewV7()
	if err != nil {
		return entity.Notification{}, err
	}
	notification.Id = id.String()
	now := time.Now().UTC().Truncate(time.Millisecond)
	notification.CreatedAt = now
	notification.UpdatedAt = now
	notification.IsRead = false

	if _, err := collection.InsertOne(ctx, notification); err != nil {
		return entity.Notification{}, err
	}

	return notification, nil
}

func (r *notificationRepository) Get(ctx context.Context, notificationId string) (entity.Notification, error) {
	collection := r.db.Collection("notifications")

	var notification entity.Notification
	err := collection.FindOne(ctx, bson.M{"_id": notificationId}).Decode(&notification)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entity.Notification{}, ErrNotificationNotFound
		}
		return entity.Notification{}, err
	}

	return notification, nil
}

func (r *notificationRepository) GetLatest(ctx context.Context, userId string, limit int) ([]entity.Notification, error) {
	collection := r.db.Collection("notifications")

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := collection.Find(ctx, bson.M{"userId": userId}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []entity.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userId string) ([]string, error) {
	collection := r.db.Collection("notifications")
	filter := bson.M{"userId": userId, "isRead": false}
	return claimUnread(ctx, collection, filter, bson.M{"updatedAt": time.Now().UTC()})
}

func (r *notificationRepository) MarkRead(ctx context.Context, notificationId string) (bool, error) {
	collection := r.db.Collection("notifications")

	filter := bson.M{"_id": notificationId, "isRead": false}
	update := bson.M{
		"$set": bson.M{
			"isRead":    true,
			"updatedAt": time.Now().UTC(),
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}

	return result.ModifiedCount > 0, nil
}

func (r *notificationRepository) ExistsForCardBetween(ctx context.Context, cardId string, from, to time.Time) (bool, error) {
	collection := r.db.Collection("notifications")
	filter := bson.M{
		"cardId":    cardId,
		"createdAt": bson.M{"$gte": from, "$lt": to},
	}

	count, err := collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
