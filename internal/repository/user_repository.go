package repository

import (
	"context"
	"errors"
	"time"

	"boardtalk/internal/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserRepository interface {
	Get(ctx context.Context, userId string) (entity.User, error)
	GetByEmail(ctx context.Context, email string) (entity.User, error)
	Index(ctx context.Context, filter entity.UserIndexFilter) ([]entity.User, error)
	Create(ctx context.Context, user entity.User) (string, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type userRepository struct {
	db mongo.Database
}

func NewUserRepository(db mongo.Database) UserRepository {
	return &userRepository{
		db: db,
	}
}

func (r *userRepository) Get(ctx context.Context, userId string) (entity.User, error) {
	return r.findOne(ctx, bson.M{"_id": userId})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (entity.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (entity.User, error) {
	collection := r.db.Collection("users")

	var user entity.User
	err := collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entity.User{}, ErrUserNotFound
		}
		return entity.User{}, err
	}

	return user, nil
}

func (r *userRepository) Index(ctx context.Context, filter entity.UserIndexFilter) ([]entity.User, error) {
	collection := r.db.Collection("users")

	bsonFilter := bson.M{}
	if len(filter.Ids) > 0 {
		bsonFilter["_id"] = bson.M{"$in": filter.Ids}
	}

	cursor, err := collection.Find(ctx, bsonFilter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []entity.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user entity.User) (string, error) {
	collection := r.db.Collection("users")
	user.Id = uuid.New().String()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := collection.InsertOne(ctx, user)
	if err != nil {
		return "", err
	}

	return user.Id, nil
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, bson.M{"username": username})
}

func (r *userRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	count, err := r.db.Collection("users").CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
