package services

import (
	"context"
	"log"
	"strings"
	"time"

	"classroom-quiz-service/internal/apperror"
	"classroom-quiz-service/internal/metrics"
	"classroom-quiz-service/internal/models"
	"classroom-quiz-service/internal/repository"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// SubmissionService grades submissions against the stored answer key and serves them back.
type SubmissionService struct {
	questions   QuestionStore
	quizzes     QuizStore
	submissions SubmissionStore
	publisher   EventPublisher
	now         func() time.Time
}

func NewSubmissionService(stores Stores, publisher EventPublisher) *SubmissionService {
	return &SubmissionService{
		questions:   stores.Questions,
		quizzes:     stores.Quizzes,
		submissions: stores.Submissions,
		publisher:   publisher,
		now:         time.Now,
	}
}

// Grade scores answers against questions, which must already be in quiz order. The feedback
// follows that order; an answer for a question that is not in the quiz is ignored, and a
// question without an answer is graded as unanswered.
func Grade(questions []models.Question, answers []models.AnswerInput) (feedback []models.AnswerFeedback, scoreTotal, totalQuizPoints float64) {
	selected := make(map[string]int, len(answers))
	for _, a := range answers {
		key := strings.ToLower(strings.TrimSpace(a.Question))
		if _, seen := selected[key]; seen {
			continue
		}
		index := models.UnansweredIndex
		if a.SelectedIndex != nil {
			index = *a.SelectedIndex
		}
		selected[key] = index
	}

	feedback = make([]models.AnswerFeedback, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		point := q.EffectivePoint()
		totalQuizPoints += point

		index, ok := selected[q.ID.Hex()]
		if !ok {
			index = models.UnansweredIndex
		}
		correct := index != models.UnansweredIndex && index == q.CorrectOptionIndex
		if correct {
			scoreTotal += point
		}

		feedback = append(feedback, models.AnswerFeedback{
			Question:           q.ID,
			QuestionText:       q.Text,
			Options:            q.Options,
			Point:              point,
			SelectedIndex:      index,
			CorrectOptionIndex: q.CorrectOptionIndex,
			IsCorrect:          correct,
		})
	}
	return feedback, scoreTotal, totalQuizPoints
}

// CreateSubmission grades req against the quiz's questions and stores the result. The
// submission create is the only write.
func (s *SubmissionService) CreateSubmission(ctx context.Context, req *models.SubmissionRequest) (*models.Submission, error) {
	const op = "SubmissionService.CreateSubmission"

	if req == nil || strings.TrimSpace(req.Quiz) == "" {
		return nil, apperror.New(apperror.MissingQuiz, op, "quiz id is required")
	}

	quizID, err := bson.ObjectIDFromHex(strings.TrimSpace(req.Quiz))
	if err != nil {
		return nil, apperror.New(apperror.QuizNotFound, op, "quiz not found")
	}
	quiz, err := s.quizzes.FindByID(ctx, quizID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.New(apperror.QuizNotFound, op, "quiz not found")
	}
	if err != nil {
		return nil, apperror.Storage(op, err)
	}

	var questions []models.Question
	if len(quiz.Questions) > 0 {
		found, err := s.questions.FindForGrading(ctx, quiz.Questions)
		if err != nil {
			return nil, apperror.Storage(op, err)
		}
		questions = orderByIDs(quiz.Questions, found, questionID)
	}
	if len(questions) == 0 {
		return nil, apperror.New(apperror.NoQuestions, op, "no questions found in this quiz")
	}

	answers, scoreTotal, totalQuizPoints := Grade(questions, req.Answers)

	submission := &models.Submission{
		Quiz:            quizID,
		Student:         req.Student,
		Answers:         answers,
		ScoreTotal:      scoreTotal,
		TotalQuizPoints: totalQuizPoints,
		StartedAt:       req.StartedAt,
		SubmittedAt:     s.now(),
	}
	if err := s.submissions.Create(ctx, submission); err != nil {
		return nil, apperror.Storage(op, err)
	}

	metrics.SubmissionGraded(scoreTotal, totalQuizPoints)
	if s.publisher != nil {
		if err := s.publisher.PublishSubmissionCreated(ctx, submission); err != nil {
			log.Printf("Failed to publish submission created event for %s: %v", submission.ID.Hex(), err)
		}
	}
	return submission, nil
}

func (s *SubmissionService) GetSubmission(ctx context.Context, submissionID string) (*models.Submission, error) {
	const op = "SubmissionService.GetSubmission"

	id, err := bson.ObjectIDFromHex(submissionID)
	if err != nil {
		return nil, apperror.New(apperror.SubmissionNotFound, op, "submission not found")
	}
	submission, err := s.submissions.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.New(apperror.SubmissionNotFound, op, "submission not found")
	}
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	return submission, nil
}

// ListSubmissions filters by quiz and student when they are set.
func (s *SubmissionService) ListSubmissions(ctx context.Context, quizID, studentID string) ([]models.Submission, error) {
	const op = "SubmissionService.ListSubmissions"

	filter := models.SubmissionFilter{Student: studentID}
	if quizID != "" {
		id, err := bson.ObjectIDFromHex(quizID)
		if err != nil {
			return nil, apperror.New(apperror.InvalidPayload, op, "invalid quiz id")
		}
		filter.Quiz = &id
	}

	submissions, err := s.submissions.Find(ctx, filter)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	return submissions, nil
}

func (s *SubmissionService) DeleteSubmission(ctx context.Context, submissionID string) error {
	const op = "SubmissionService.DeleteSubmission"

	id, err := bson.ObjectIDFromHex(submissionID)
	if err != nil {
		return apperror.New(apperror.SubmissionNotFound, op, "submission not found")
	}
	err = s.submissions.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.New(apperror.SubmissionNotFound, op, "submission not found")
	}
	if err != nil {
		return apperror.Storage(op, err)
	}
	return nil
}

func (s *SubmissionService) CheckQuizTaken(ctx context.Context, studentID, quizID string) (*models.QuizTakenStatus, error) {
	const op = "SubmissionService.CheckQuizTaken"

	id, err := bson.ObjectIDFromHex(quizID)
	if err != nil {
		return nil, apperror.New(apperror.InvalidPayload, op, "invalid quiz id")
	}
	submission, err := s.submissions.FindLatest(ctx, id, studentID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.QuizTakenStatus{IsTaken: false}, nil
	}
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	return &models.QuizTakenStatus{IsTaken: true, Submission: submission}, nil
}

func (s *SubmissionService) GetSubmissionByQuizAndStudent(ctx context.Context, quizID, studentID string) (*models.Submission, error) {
	const op = "SubmissionService.GetSubmissionByQuizAndStudent"

	id, err := bson.ObjectIDFromHex(quizID)
	if err != nil {
		return nil, apperror.New(apperror.SubmissionNotFound, op, "submission not found for this quiz")
	}
	submission, err := s.submissions.FindLatest(ctx, id, studentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.New(apperror.SubmissionNotFound, op, "submission not found for this quiz")
	}
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	return submission, nil
}
