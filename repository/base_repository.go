package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when an id does not resolve to a document,
// including ids that are not valid ObjectIDs.
var ErrNotFound = errors.New("document not found")

type BaseRepository[T any] interface {
	Create(ctx context.Context, entity *T) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id string) (*T, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
}

type BaseRepositoryImpl[T any] struct {
	coll *mongo.Collection
}

func NewBaseRepository[T any](coll *mongo.Collection) *BaseRepositoryImpl[T] {
	return &BaseRepositoryImpl[T]{
		coll: coll,
	}
}

func (r *BaseRepositoryImpl[T]) Create(ctx context.Context, entity *T) (primitive.ObjectID, error) {
	res, err := r.coll.InsertOne(ctx, entity)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("inserted id is not an ObjectID")
	}
	return id, nil
}

func (r *BaseRepositoryImpl[T]) GetByID(ctx context.Context, id string) (*T, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var entity T
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&entity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *BaseRepositoryImpl[T]) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *BaseRepositoryImpl[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return r.coll.CountDocuments(ctx, filter)
}
