package services

import (
	"context"
	"log"

	"classroom-quiz-service/internal/apperror"
	"classroom-quiz-service/internal/metrics"
	"classroom-quiz-service/internal/models"
	"classroom-quiz-service/internal/repository"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// QuizService serves quiz reads and deletion. Reads only ever see public questions.
type QuizService struct {
	questions QuestionStore
	quizzes   QuizStore
	links     ModuleQuizStore
	owners    ownership
	cache     QuizCache
	publisher EventPublisher
}

func NewQuizService(stores Stores, cache QuizCache, publisher EventPublisher) *QuizService {
	return &QuizService{
		questions: stores.Questions,
		quizzes:   stores.Quizzes,
		links:     stores.Links,
		owners:    ownership{modules: stores.Modules, groups: stores.Groups},
		cache:     cache,
		publisher: publisher,
	}
}

func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (*models.PopulatedQuiz, error) {
	const op = "QuizService.GetQuiz"

	id, err := bson.ObjectIDFromHex(quizID)
	if err != nil {
		return nil, apperror.New(apperror.QuizNotFound, op, "quiz not found")
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, quizID)
		if err != nil {
			log.Printf("Failed to read cached quiz %s: %v", quizID, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	quiz, err := s.quizzes.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.New(apperror.QuizNotFound, op, "quiz not found")
	}
	if err != nil {
		return nil, apperror.Storage(op, err)
	}

	populated, err := populateQuiz(ctx, s.questions, quiz)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, populated); err != nil {
			log.Printf("Failed to cache quiz %s: %v", quizID, err)
		}
	}
	return populated, nil
}

func (s *QuizService) ListQuizzes(ctx context.Context) ([]*models.PopulatedQuiz, error) {
	const op = "QuizService.ListQuizzes"

	quizzes, err := s.quizzes.FindAll(ctx)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	populated, err := populateQuizzes(ctx, s.questions, quizzes)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	return populated, nil
}

func (s *QuizService) ListQuizzesByModule(ctx context.Context, moduleID string) ([]*models.PopulatedQuiz, error) {
	const op = "QuizService.ListQuizzesByModule"

	id, err := bson.ObjectIDFromHex(moduleID)
	if err != nil {
		return nil, apperror.New(apperror.ModuleNotFound, op, "module not found")
	}

	links, err := s.links.FindByModule(ctx, id)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	if len(links) == 0 {
		return []*models.PopulatedQuiz{}, nil
	}

	quizIDs := make([]bson.ObjectID, len(links))
	for i, l := range links {
		quizIDs[i] = l.QuizID
	}
	quizzes, err := s.quizzes.FindByIDs(ctx, quizIDs)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	populated, err := populateQuizzes(ctx, s.questions, quizzes)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	return populated, nil
}

// DeleteQuiz removes the quiz and its module links. Its questions are left in storage,
// unreferenced, the same way a shrinking update leaves them.
func (s *QuizService) DeleteQuiz(ctx context.Context, quizID string, userID string) (err error) {
	const op = "QuizService.DeleteQuiz"
	done := metrics.AuthoringTimer("delete")
	defer func() { done(err) }()

	id, err := bson.ObjectIDFromHex(quizID)
	if err != nil {
		return apperror.New(apperror.QuizNotFound, op, "quiz not found")
	}
	quiz, err := s.quizzes.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.New(apperror.QuizNotFound, op, "quiz not found")
	}
	if err != nil {
		return apperror.Storage(op, err)
	}

	links, err := s.links.FindByQuiz(ctx, id)
	if err != nil {
		return apperror.Storage(op, err)
	}
	moduleIDs := make([]bson.ObjectID, len(links))
	for i, l := range links {
		moduleIDs[i] = l.ModuleID
	}
	if err := s.owners.ownsAll(ctx, op, moduleIDs, userID); err != nil {
		return err
	}

	if err := s.quizzes.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.New(apperror.QuizNotFound, op, "quiz not found")
		}
		return apperror.Storage(op, err)
	}
	if _, err := s.links.UnlinkQuiz(ctx, id); err != nil {
		return apperror.Storage(op, err)
	}

	if len(quiz.Questions) > 0 {
		log.Printf("Deleted quiz %s, orphaned %d questions: %v", quizID, len(quiz.Questions), hexIDs(quiz.Questions))
		metrics.QuestionsOrphaned(len(quiz.Questions))
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, quizID); err != nil {
			log.Printf("Failed to invalidate cached quiz %s: %v", quizID, err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishQuizDeleted(ctx, id, quiz.Questions); err != nil {
			log.Printf("Failed to publish quiz deleted event for %s: %v", quizID, err)
		}
	}
	return nil
}

// RemoveModuleLinks drops every link to a module that no longer exists.
func (s *QuizService) RemoveModuleLinks(ctx context.Context, moduleID string) (int64, error) {
	const op = "QuizService.RemoveModuleLinks"

	id, err := bson.ObjectIDFromHex(moduleID)
	if err != nil {
		return 0, apperror.New(apperror.InvalidPayload, op, "invalid module id")
	}
	removed, err := s.links.UnlinkModule(ctx, id)
	if err != nil {
		return 0, apperror.Storage(op, err)
	}
	return removed, nil
}
