package event

import (
	"time"

	"classroom-quiz-service/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	// Quiz events
	EventTypeQuizCreated = "quiz.created"
	EventTypeQuizUpdated = "quiz.updated"
	EventTypeQuizDeleted = "quiz.deleted"

	// Submission events
	EventTypeSubmissionCreated = "submission.created"

	// Course events consumed from the course exchange
	EventTypeModuleDeleted = "module.deleted"
	EventTypeGroupDeleted  = "group.deleted"
)

// QuizEvent describes a change to a quiz.
type QuizEvent struct {
	EventID             string   `json:"eventId"`
	EventType           string   `json:"eventType"`
	QuizID              string   `json:"quizId"`
	Title               string   `json:"title,omitempty"`
	QuestionIDs         []string `json:"questionIds,omitempty"`
	ModuleIDs           []string `json:"moduleIds,omitempty"`
	OrphanedQuestionIDs []string `json:"orphanedQuestionIds,omitempty"`
	Timestamp           int64    `json:"timestamp"`
}

// SubmissionEvent describes a graded submission.
type SubmissionEvent struct {
	EventID         string  `json:"eventId"`
	EventType       string  `json:"eventType"`
	SubmissionID    string  `json:"submissionId"`
	QuizID          string  `json:"quizId"`
	StudentID       string  `json:"studentId"`
	ScoreTotal      float64 `json:"scoreTotal"`
	TotalQuizPoints float64 `json:"totalQuizPoints"`
	Timestamp       int64   `json:"timestamp"`
}

// CourseEvent is the subset of the course service's module and group events this service reads.
type CourseEvent struct {
	EventType string `json:"eventType"`
	ModuleID  string `json:"moduleId,omitempty"`
	GroupID   string `json:"groupId,omitempty"`
}

func NewQuizEvent(eventType string, quiz *models.Quiz, moduleIDs, orphaned []bson.ObjectID) *QuizEvent {
	return &QuizEvent{
		EventID:             uuid.NewString(),
		EventType:           eventType,
		QuizID:              quiz.ID.Hex(),
		Title:               quiz.Title,
		QuestionIDs:         hexList(quiz.Questions),
		ModuleIDs:           hexList(moduleIDs),
		OrphanedQuestionIDs: hexList(orphaned),
		Timestamp:           time.Now().Unix(),
	}
}

func NewSubmissionEvent(submission *models.Submission) *SubmissionEvent {
	return &SubmissionEvent{
		EventID:         uuid.NewString(),
		EventType:       EventTypeSubmissionCreated,
		SubmissionID:    submission.ID.Hex(),
		QuizID:          submission.Quiz.Hex(),
		StudentID:       submission.Student,
		ScoreTotal:      submission.ScoreTotal,
		TotalQuizPoints: submission.TotalQuizPoints,
		Timestamp:       time.Now().Unix(),
	}
}

func hexList(ids []bson.ObjectID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}
