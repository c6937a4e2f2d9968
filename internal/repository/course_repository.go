package repository

import (
	"context"

	"classroom-quiz-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ModuleRepository reads the course service's modules collection.
type ModuleRepository struct {
	col *mongo.Collection
}

func NewModuleRepository(db *mongo.Database) *ModuleRepository {
	return &ModuleRepository{col: db.Collection("modules")}
}

// FindByIDs returns the modules that exist among ids; duplicates in ids resolve once.
func (r *ModuleRepository) FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Module, error) {
	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, translate(err, "find modules")
	}
	defer cursor.Close(ctx)

	modules := []models.Module{}
	if err := cursor.All(ctx, &modules); err != nil {
		return nil, translate(err, "decode modules")
	}
	return modules, nil
}

// GroupRepository reads the course service's groups collection.
type GroupRepository struct {
	col *mongo.Collection
}

func NewGroupRepository(db *mongo.Database) *GroupRepository {
	return &GroupRepository{col: db.Collection("groups")}
}

func (r *GroupRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Group, error) {
	var group models.Group
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&group); err != nil {
		return nil, translate(err, "find group")
	}
	return &group, nil
}
