package repository

import (
	"context"

	"classroom-quiz-service/internal/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type QuestionRepository struct {
	col *mongo.Collection
}

func NewQuestionRepository(db *mongo.Database) *QuestionRepository {
	return &QuestionRepository{col: db.Collection("questions")}
}

// InsertMany stores the questions and returns their ids in input order.
func (r *QuestionRepository) InsertMany(ctx context.Context, questions []models.Question) ([]bson.ObjectID, error) {
	if len(questions) == 0 {
		return []bson.ObjectID{}, nil
	}

	ids := make([]bson.ObjectID, len(questions))
	docs := make([]any, len(questions))
	for i := range questions {
		q := questions[i]
		if q.ID.IsZero() {
			q.ID = bson.NewObjectID()
		}
		ids[i] = q.ID
		docs[i] = q
	}

	if _, err := r.col.InsertMany(ctx, docs); err != nil {
		return nil, translate(err, "insert questions")
	}
	return ids, nil
}

func (r *QuestionRepository) UpdateByID(ctx context.Context, id bson.ObjectID, u models.QuestionUpdate) error {
	set := bson.M{
		"text":               u.Text,
		"options":            u.Options,
		"correctOptionIndex": u.CorrectOptionIndex,
	}
	if u.Point != nil {
		set["point"] = *u.Point
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return translate(err, "update question")
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(ErrNotFound, "question %s", id.Hex())
	}
	return nil
}

// FindPublic returns the questions with the answer key projected out.
func (r *QuestionRepository) FindPublic(ctx context.Context, ids []bson.ObjectID) ([]models.PublicQuestion, error) {
	opts := options.Find().SetProjection(bson.M{"correctOptionIndex": 0})
	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, translate(err, "find public questions")
	}
	defer cursor.Close(ctx)

	var questions []models.PublicQuestion
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, translate(err, "decode public questions")
	}
	return questions, nil
}

// FindForGrading returns the full question documents, answer key included.
func (r *QuestionRepository) FindForGrading(ctx context.Context, ids []bson.ObjectID) ([]models.Question, error) {
	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, translate(err, "find questions for grading")
	}
	defer cursor.Close(ctx)

	var questions []models.Question
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, translate(err, "decode questions for grading")
	}
	return questions, nil
}
