package repository

import (
	"context"
	"time"

	"classroom-quiz-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type ModuleQuizRepository struct {
	col *mongo.Collection
}

func NewModuleQuizRepository(db *mongo.Database) *ModuleQuizRepository {
	return &ModuleQuizRepository{col: db.Collection("modulequizzes")}
}

// EnsureIndexes creates the unique (moduleId, quizId) index link reconciliation relies on.
func (r *ModuleQuizRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "moduleId", Value: 1}, {Key: "quizId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "quizId", Value: 1}},
		},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return translate(err, "create modulequiz indexes")
}

// Link inserts one link per module. Inserts are unordered, so a duplicate pair does not stop
// the rest; when duplicates are the only failures ErrDuplicateKey is returned.
func (r *ModuleQuizRepository) Link(ctx context.Context, quizID bson.ObjectID, moduleIDs []bson.ObjectID) error {
	if len(moduleIDs) == 0 {
		return nil
	}

	now := time.Now()
	docs := make([]any, len(moduleIDs))
	for i, moduleID := range moduleIDs {
		docs[i] = models.ModuleQuiz{
			ID:        bson.NewObjectID(),
			ModuleID:  moduleID,
			QuizID:    quizID,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	_, err := r.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return translate(err, "insert modulequiz links")
}

func (r *ModuleQuizRepository) FindByQuiz(ctx context.Context, quizID bson.ObjectID) ([]models.ModuleQuiz, error) {
	return r.find(ctx, bson.M{"quizId": quizID})
}

func (r *ModuleQuizRepository) FindByModule(ctx context.Context, moduleID bson.ObjectID) ([]models.ModuleQuiz, error) {
	return r.find(ctx, bson.M{"moduleId": moduleID})
}

func (r *ModuleQuizRepository) find(ctx context.Context, filter bson.M) ([]models.ModuleQuiz, error) {
	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, translate(err, "find modulequiz links")
	}
	defer cursor.Close(ctx)

	links := []models.ModuleQuiz{}
	if err := cursor.All(ctx, &links); err != nil {
		return nil, translate(err, "decode modulequiz links")
	}
	return links, nil
}

// UnlinkExcept removes the quiz's links whose module is not in keep.
func (r *ModuleQuizRepository) UnlinkExcept(ctx context.Context, quizID bson.ObjectID, keep []bson.ObjectID) (int64, error) {
	if keep == nil {
		keep = []bson.ObjectID{}
	}
	res, err := r.col.DeleteMany(ctx, bson.M{"quizId": quizID, "moduleId": bson.M{"$nin": keep}})
	if err != nil {
		return 0, translate(err, "delete stale modulequiz links")
	}
	return res.DeletedCount, nil
}

func (r *ModuleQuizRepository) UnlinkQuiz(ctx context.Context, quizID bson.ObjectID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"quizId": quizID})
	if err != nil {
		return 0, translate(err, "delete quiz links")
	}
	return res.DeletedCount, nil
}

func (r *ModuleQuizRepository) UnlinkModule(ctx context.Context, moduleID bson.ObjectID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"moduleId": moduleID})
	if err != nil {
		return 0, translate(err, "delete module links")
	}
	return res.DeletedCount, nil
}
