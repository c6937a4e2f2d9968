package repository

import (
	"context"
	"time"

	"classroom-quiz-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type QuizRepository struct {
	col *mongo.Collection
}

func NewQuizRepository(db *mongo.Database) *QuizRepository {
	return &QuizRepository{col: db.Collection("quizzes")}
}

func (r *QuizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	if quiz.ID.IsZero() {
		quiz.ID = bson.NewObjectID()
	}
	now := time.Now()
	quiz.CreatedAt = now
	quiz.UpdatedAt = now
	if quiz.Questions == nil {
		quiz.Questions = []bson.ObjectID{}
	}

	_, err := r.col.InsertOne(ctx, quiz)
	return translate(err, "insert quiz")
}

func (r *QuizRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&quiz); err != nil {
		return nil, translate(err, "find quiz")
	}
	return &quiz, nil
}

func (r *QuizRepository) FindAll(ctx context.Context) ([]models.Quiz, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, bson.M{}, opts)
}

func (r *QuizRepository) FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Quiz, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
}

func (r *QuizRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]models.Quiz, error) {
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err, "find quizzes")
	}
	defer cursor.Close(ctx)

	quizzes := []models.Quiz{}
	if err := cursor.All(ctx, &quizzes); err != nil {
		return nil, translate(err, "decode quizzes")
	}
	return quizzes, nil
}

// UpdateDetails writes the authoring fields of quiz and returns the stored result.
// Optional fields left nil keep their stored values.
func (r *QuizRepository) UpdateDetails(ctx context.Context, quiz *models.Quiz) (*models.Quiz, error) {
	set := bson.M{
		"title":       quiz.Title,
		"description": quiz.Description,
		"questions":   quiz.Questions,
		"updatedAt":   time.Now(),
	}
	if quiz.TotalMarks != nil {
		set["totalMarks"] = *quiz.TotalMarks
	}
	if quiz.DurationMinutes != nil {
		set["durationMinutes"] = *quiz.DurationMinutes
	}
	if quiz.StartAt != nil {
		set["startAt"] = *quiz.StartAt
	}
	if quiz.EndAt != nil {
		set["endAt"] = *quiz.EndAt
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Quiz
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": quiz.ID}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		return nil, translate(err, "update quiz")
	}
	return &updated, nil
}

func (r *QuizRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, "delete quiz")
	}
	if res.DeletedCount == 0 {
		return translate(mongo.ErrNoDocuments, "delete quiz")
	}
	return nil
}
