package repository

import (
	"context"
	"time"

	"boardtalk/internal/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CardRepository is read-only; cards are written by the board service.
type CardRepository interface {
	// FindDueBy returns cards with a due date strictly before the given time.
	FindDueBy(ctx context.Context, before time.Time) ([]entity.Card, error)
}

type cardRepository struct {
	db mongo.Database
}

func NewCardRepository(db mongo.Database) CardRepository {
	return &cardRepository{
		db: db,
	}
}

func (r *cardRepository) FindDueBy(ctx context.Context, before time.Time) ([]entity.Card, error) {
	collection := r.db.Collection("cards")
	filter := bson.M{"dueDate": bson.M{"$ne": nil, "$lt": before}}
	opts := options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	cards := []entity.Card{}
	if err := cursor.All(ctx, &cards); err != nil {
		return nil, err
	}

	return cards, nil
}
