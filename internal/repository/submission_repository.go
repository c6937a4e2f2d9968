package repository

import (
	"context"

	"classroom-quiz-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type SubmissionRepository struct {
	col *mongo.Collection
}

func NewSubmissionRepository(db *mongo.Database) *SubmissionRepository {
	return &SubmissionRepository{col: db.Collection("submissions")}
}

func (r *SubmissionRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "quiz", Value: 1}, {Key: "student", Value: 1}}},
		{Keys: bson.D{{Key: "student", Value: 1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return translate(err, "create submission indexes")
}

func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID.IsZero() {
		submission.ID = bson.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, submission)
	return translate(err, "insert submission")
}

func (r *SubmissionRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Submission, error) {
	var submission models.Submission
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&submission); err != nil {
		return nil, translate(err, "find submission")
	}
	return &submission, nil
}

func (r *SubmissionRepository) Find(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	query := bson.M{}
	if filter.Quiz != nil {
		query["quiz"] = *filter.Quiz
	}
	if filter.Student != "" {
		query["student"] = filter.Student
	}

	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, translate(err, "find submissions")
	}
	defer cursor.Close(ctx)

	submissions := []models.Submission{}
	if err := cursor.All(ctx, &submissions); err != nil {
		return nil, translate(err, "decode submissions")
	}
	return submissions, nil
}

// FindLatest returns the student's most recent submission for the quiz.
func (r *SubmissionRepository) FindLatest(ctx context.Context, quizID bson.ObjectID, student string) (*models.Submission, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	var submission models.Submission
	err := r.col.FindOne(ctx, bson.M{"quiz": quizID, "student": student}, opts).Decode(&submission)
	if err != nil {
		return nil, translate(err, "find latest submission")
	}
	return &submission, nil
}

func (r *SubmissionRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, "delete submission")
	}
	if res.DeletedCount == 0 {
		return translate(mongo.ErrNoDocuments, "delete submission")
	}
	return nil
}
