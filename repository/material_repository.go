package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arkstudy/ms3-contenido/models"
)

const MaterialCollection = "materiales"

type MaterialRepository interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, material *models.Material) error
	GetByID(ctx context.Context, id string) (*models.Material, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Material, error)
	Update(ctx context.Context, id string, update models.MaterialUpdate) (*models.Material, error)
	Delete(ctx context.Context, id string) (bool, error)
	CountByCurso(ctx context.Context, cursoID string) (int64, error)
}

type MaterialRepositoryImpl struct {
	*BaseRepositoryImpl[models.Material]
}

func NewMaterialRepository(db *mongo.Database) MaterialRepository {
	return newMaterialRepository(db.Collection(MaterialCollection))
}

func newMaterialRepository(coll *mongo.Collection) *MaterialRepositoryImpl {
	return &MaterialRepositoryImpl{
		BaseRepositoryImpl: NewBaseRepository[models.Material](coll),
	}
}

// EnsureIndexes creates the lookup indexes used by listings. Creating an
// index that already exists is a no-op in MongoDB.
func (r *MaterialRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "cursoId", Value: 1}}},
		{Keys: bson.D{{Key: "tipo", Value: 1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "fechaCreacion", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create indexes on %s: %w", MaterialCollection, err)
	}
	return nil
}

// Create inserts material and sets its ID to the one assigned by the store.
func (r *MaterialRepositoryImpl) Create(ctx context.Context, material *models.Material) error {
	material.ID = primitive.NilObjectID
	id, err := r.BaseRepositoryImpl.Create(ctx, material)
	if err != nil {
		return fmt.Errorf("insert material: %w", err)
	}
	material.ID = id
	return nil
}

// List returns matching materials, newest first. Documents created in the
// same instant are ordered by id so pages stay stable.
func (r *MaterialRepositoryImpl) List(ctx context.Context, filter models.ListFilter) ([]*models.Material, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "fechaCreacion", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(filter.Skip)
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cur, err := r.coll.Find(ctx, listQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find materials: %w", err)
	}
	defer cur.Close(ctx)

	materials := []*models.Material{}
	if err := cur.All(ctx, &materials); err != nil {
		return nil, fmt.Errorf("decode materials: %w", err)
	}
	return materials, nil
}

// Update applies only the supplied fields. An empty update returns the
// current document.
func (r *MaterialRepositoryImpl) Update(ctx context.Context, id string, update models.MaterialUpdate) (*models.Material, error) {
	if update.IsEmpty() {
		return r.GetByID(ctx, id)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var material models.Material
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, updateDocument(update), opts).Decode(&material)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update material: %w", err)
	}
	return &material, nil
}

// CountByCurso counts the materials of a course, or all materials when
// cursoID is empty.
func (r *MaterialRepositoryImpl) CountByCurso(ctx context.Context, cursoID string) (int64, error) {
	filter := bson.M{}
	if cursoID != "" {
		filter["cursoId"] = cursoID
	}
	n, err := r.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count materials: %w", err)
	}
	return n, nil
}

func listQuery(filter models.ListFilter) bson.M {
	q := bson.M{}
	if filter.CursoID != "" {
		q["cursoId"] = filter.CursoID
	}
	if filter.Tipo != "" {
		q["tipo"] = filter.Tipo
	}
	if filter.Publicado != nil {
		q["publicado"] = *filter.Publicado
	}
	return q
}

func updateDocument(update models.MaterialUpdate) bson.M {
	set := bson.M{}
	for k, v := range update.Fields() {
		set[k] = v
	}
	return bson.M{"$set": set}
}
