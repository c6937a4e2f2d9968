package services

import (
	"context"

	"classroom-quiz-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// QuestionStore exposes two reads: FindPublic never returns the answer key, FindForGrading does.
type QuestionStore interface {
	InsertMany(ctx context.Context, questions []models.Question) ([]bson.ObjectID, error)
	UpdateByID(ctx context.Context, id bson.ObjectID, u models.QuestionUpdate) error
	FindPublic(ctx context.Context, ids []bson.ObjectID) ([]models.PublicQuestion, error)
	FindForGrading(ctx context.Context, ids []bson.ObjectID) ([]models.Question, error)
}

type QuizStore interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Quiz, error)
	FindAll(ctx context.Context) ([]models.Quiz, error)
	FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Quiz, error)
	UpdateDetails(ctx context.Context, quiz *models.Quiz) (*models.Quiz, error)
	Delete(ctx context.Context, id bson.ObjectID) error
}

// ModuleQuizStore manages quiz to module links. Link reports repository.ErrDuplicateKey when
// the only failures were existing pairs.
type ModuleQuizStore interface {
	Link(ctx context.Context, quizID bson.ObjectID, moduleIDs []bson.ObjectID) error
	FindByQuiz(ctx context.Context, quizID bson.ObjectID) ([]models.ModuleQuiz, error)
	FindByModule(ctx context.Context, moduleID bson.ObjectID) ([]models.ModuleQuiz, error)
	UnlinkExcept(ctx context.Context, quizID bson.ObjectID, keep []bson.ObjectID) (int64, error)
	UnlinkQuiz(ctx context.Context, quizID bson.ObjectID) (int64, error)
	UnlinkModule(ctx context.Context, moduleID bson.ObjectID) (int64, error)
}

type ModuleStore interface {
	FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Module, error)
}

type GroupStore interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Group, error)
}

type SubmissionStore interface {
	Create(ctx context.Context, submission *models.Submission) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Submission, error)
	Find(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
	FindLatest(ctx context.Context, quizID bson.ObjectID, student string) (*models.Submission, error)
	Delete(ctx context.Context, id bson.ObjectID) error
}

type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// QuizCache returns nil, nil on a miss.
type QuizCache interface {
	Get(ctx context.Context, id string) (*models.PopulatedQuiz, error)
	Set(ctx context.Context, quiz *models.PopulatedQuiz) error
	Invalidate(ctx context.Context, id string) error
}

type EventPublisher interface {
	PublishQuizCreated(ctx context.Context, quiz *models.Quiz, moduleIDs []bson.ObjectID) error
	PublishQuizUpdated(ctx context.Context, quiz *models.Quiz, moduleIDs, orphaned []bson.ObjectID) error
	PublishQuizDeleted(ctx context.Context, quizID bson.ObjectID, orphaned []bson.ObjectID) error
	PublishSubmissionCreated(ctx context.Context, submission *models.Submission) error
}

// Stores groups the record store collaborators.
type Stores struct {
	Questions   QuestionStore
	Quizzes     QuizStore
	Links       ModuleQuizStore
	Modules     ModuleStore
	Groups      GroupStore
	Submissions SubmissionStore
}
