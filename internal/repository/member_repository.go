package repository

import (
	"context"

	"boardtalk/internal/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MemberRepository interface {
	FindOrgMembers(ctx context.Context, orgId string) ([]entity.Member, error)
}

type memberRepository struct {
	db mongo.Database
}

func NewMemberRepository(db mongo.Database) MemberRepository {
	return &memberRepository{
		db: db,
	}
}

func (r *memberRepository) FindOrgMembers(ctx context.Context, orgId string) ([]entity.Member, error) {
	collection := r.db.Collection("members")

	cursor, err := collection.Find(ctx, bson.M{"orgId": orgId})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	members := []entity.Member{}
	if err := cursor.All(ctx, &members); err != nil {
		return nil, err
	}

	return members, nil
}
