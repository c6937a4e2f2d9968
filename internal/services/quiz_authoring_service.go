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

// QuizAuthoringService builds quizzes from authoring payloads and keeps their questions and
// module links consistent with the latest payload.
type QuizAuthoringService struct {
	questions QuestionStore
	quizzes   QuizStore
	links     ModuleQuizStore
	owners    ownership
	tx        Transactor
	cache     QuizCache
	publisher EventPublisher
}

// UpdateResult is the outcome of an update. OrphanedQuestions are question ids the quiz no
// longer references; they are left in storage.
type UpdateResult struct {
	Quiz              *models.PopulatedQuiz `json:"quiz"`
	OrphanedQuestions []bson.ObjectID       `json:"orphanedQuestions"`
}

// NewQuizAuthoringService wires the service. tx, cache and publisher may be nil.
func NewQuizAuthoringService(stores Stores, tx Transactor, cache QuizCache, publisher EventPublisher) *QuizAuthoringService {
	if tx == nil {
		tx = repository.NoopTransactor{}
	}
	return &QuizAuthoringService{
		questions: stores.Questions,
		quizzes:   stores.Quizzes,
		links:     stores.Links,
		owners:    ownership{modules: stores.Modules, groups: stores.Groups},
		tx:        tx,
		cache:     cache,
		publisher: publisher,
	}
}

func checkDetails(op string, details *models.QuizDetailsPayload) error {
	if details == nil {
		return apperror.New(apperror.InvalidPayload, op, "invalid quiz_details payload")
	}
	if len(details.Questions) == 0 {
		return apperror.New(apperror.MissingQuestions, op, "quiz questions are required")
	}
	if len(details.ModuleIDs) == 0 {
		return apperror.New(apperror.MissingModules, op, "module_ids are required")
	}
	if details.Title == "" {
		return apperror.New(apperror.InvalidPayload, op, "quiz title is required")
	}
	return nil
}

func (s *QuizAuthoringService) CreateQuizWithDetails(ctx context.Context, details *models.QuizDetailsPayload, userID string) (quiz *models.PopulatedQuiz, err error) {
	const op = "QuizAuthoringService.CreateQuizWithDetails"
	done := metrics.AuthoringTimer("create")
	defer func() { done(err) }()

	if err := checkDetails(op, details); err != nil {
		return nil, err
	}
	if _, err := s.owners.resolveGroup(ctx, op, details.ModuleIDs, userID); err != nil {
		return nil, err
	}

	questions := make([]models.Question, len(details.Questions))
	for i := range details.Questions {
		questions[i] = details.Questions[i].ToQuestion()
	}

	var created *models.Quiz
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ids, err := s.questions.InsertMany(ctx, questions)
		if err != nil {
			return apperror.Storage(op, err)
		}

		q := &models.Quiz{
			Title:           details.Title,
			Description:     details.Description,
			Questions:       ids,
			TotalMarks:      details.TotalMarks,
			DurationMinutes: details.DurationMinutes,
			StartAt:         details.StartAt,
			EndAt:           details.EndAt,
		}
		if err := s.quizzes.Create(ctx, q); err != nil {
			return apperror.Storage(op, err)
		}
		if err := s.linkModules(ctx, op, q.ID, details.ModuleIDs); err != nil {
			return err
		}
		created = q
		return nil
	})
	if err != nil {
		if apperror.KindOf(err) == "" {
			err = apperror.Storage(op, err)
		}
		return nil, err
	}

	populated, err := populateQuiz(ctx, s.questions, created)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishQuizCreated(ctx, created, details.ModuleIDs); err != nil {
			log.Printf("Failed to publish quiz created event for %s: %v", created.ID.Hex(), err)
		}
	}
	return populated, nil
}

// UpdateQuizWithDetails reconciles the quiz's questions with the payload by position: the
// question at index i is updated in place when the quiz already has one there, otherwise a new
// question is inserted. Existing questions past the end of the payload are orphaned.
func (s *QuizAuthoringService) UpdateQuizWithDetails(ctx context.Context, quizID string, details *models.QuizDetailsPayload, userID string) (result *UpdateResult, err error) {
	const op = "QuizAuthoringService.UpdateQuizWithDetails"
	done := metrics.AuthoringTimer("update")
	defer func() { done(err) }()

	if quizID == "" {
		return nil, apperror.New(apperror.InvalidPayload, op, "quiz id is required")
	}
	if err := checkDetails(op, details); err != nil {
		return nil, err
	}

	id, err := bson.ObjectIDFromHex(quizID)
	if err != nil {
		return nil, apperror.New(apperror.QuizNotFound, op, "quiz not found")
	}
	existing, err := s.quizzes.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.New(apperror.QuizNotFound, op, "quiz not found")
	}
	if err != nil {
		return nil, apperror.Storage(op, err)
	}

	if _, err := s.owners.resolveGroup(ctx, op, details.ModuleIDs, userID); err != nil {
		return nil, err
	}

	// the writes below are not atomic, so a failed update still drops the cached view
	defer s.invalidateCached(ctx, quizID)

	existingIDs := existing.Questions
	kept := make([]bson.ObjectID, 0, len(details.Questions))
	var fresh []models.Question
	for i := range details.Questions {
		if i >= len(existingIDs) {
			fresh = append(fresh, details.Questions[i].ToQuestion())
			continue
		}
		target := existingIDs[i]
		if err := s.questions.UpdateByID(ctx, target, details.Questions[i].ToUpdate()); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, apperror.Storage(op, err)
			}
			log.Printf("Question %s of quiz %s is missing, keeping its reference", target.Hex(), quizID)
		}
		kept = append(kept, target)
	}

	finalIDs := kept
	if len(fresh) > 0 {
		inserted, err := s.questions.InsertMany(ctx, fresh)
		if err != nil {
			return nil, apperror.Storage(op, err)
		}
		finalIDs = append(finalIDs, inserted...)
	}

	var orphaned []bson.ObjectID
	if len(existingIDs) > len(kept) {
		orphaned = append(orphaned, existingIDs[len(kept):]...)
	}

	updated, err := s.quizzes.UpdateDetails(ctx, &models.Quiz{
		ID:              id,
		Title:           details.Title,
		Description:     details.Description,
		Questions:       finalIDs,
		TotalMarks:      details.TotalMarks,
		DurationMinutes: details.DurationMinutes,
		StartAt:         details.StartAt,
		EndAt:           details.EndAt,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.New(apperror.QuizNotFound, op, "quiz not found")
	}
	if err != nil {
		return nil, apperror.Storage(op, err)
	}

	if err := s.reconcileLinks(ctx, op, id, details.ModuleIDs); err != nil {
		return nil, err
	}

	if len(orphaned) > 0 {
		log.Printf("Quiz %s update orphaned %d questions: %v", quizID, len(orphaned), hexIDs(orphaned))
		metrics.QuestionsOrphaned(len(orphaned))
	}

	populated, err := populateQuiz(ctx, s.questions, updated)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishQuizUpdated(ctx, updated, details.ModuleIDs, orphaned); err != nil {
			log.Printf("Failed to publish quiz updated event for %s: %v", quizID, err)
		}
	}

	if orphaned == nil {
		orphaned = []bson.ObjectID{}
	}
	return &UpdateResult{Quiz: populated, OrphanedQuestions: orphaned}, nil
}

func (s *QuizAuthoringService) invalidateCached(ctx context.Context, quizID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, quizID); err != nil {
		log.Printf("Failed to invalidate cached quiz %s: %v", quizID, err)
	}
}

// linkModules creates the quiz's module links. Pairs that already exist are not an error.
func (s *QuizAuthoringService) linkModules(ctx context.Context, op string, quizID bson.ObjectID, moduleIDs []bson.ObjectID) error {
	if len(moduleIDs) == 0 {
		return nil
	}
	err := s.links.Link(ctx, quizID, moduleIDs)
	if errors.Is(err, repository.ErrDuplicateKey) {
		log.Printf("Quiz %s already linked to some of %v", quizID.Hex(), hexIDs(moduleIDs))
		return nil
	}
	if err != nil {
		return apperror.Storage(op, err)
	}
	return nil
}

// reconcileLinks makes the quiz's link set equal to moduleIDs.
func (s *QuizAuthoringService) reconcileLinks(ctx context.Context, op string, quizID bson.ObjectID, moduleIDs []bson.ObjectID) error {
	if _, err := s.links.UnlinkExcept(ctx, quizID, moduleIDs); err != nil {
		return apperror.Storage(op, err)
	}

	current, err := s.links.FindByQuiz(ctx, quizID)
	if err != nil {
		return apperror.Storage(op, err)
	}
	linked := make(map[bson.ObjectID]struct{}, len(current))
	for _, l := range current {
		linked[l.ModuleID] = struct{}{}
	}

	var missing []bson.ObjectID
	for _, moduleID := range moduleIDs {
		if _, ok := linked[moduleID]; ok {
			continue
		}
		linked[moduleID] = struct{}{}
		missing = append(missing, moduleID)
	}
	return s.linkModules(ctx, op, quizID, missing)
}
