package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type QuestionPayload struct {
	Text               string   `json:"text" validate:"required"`
	Options            []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectOptionIndex *int     `json:"correctOptionIndex" validate:"required,min=0"`
	Point              *float64 `json:"point,omitempty" validate:"omitempty,min=0"`
}

// QuizDetailsPayload is the decoded quiz_details body shared by create and update.
type QuizDetailsPayload struct {
	Title           string            `json:"title" validate:"required"`
	Description     string            `json:"description"`
	TotalMarks      *float64          `json:"totalMarks,omitempty" validate:"omitempty,min=0"`
	DurationMinutes *int              `json:"durationMinutes,omitempty" validate:"omitempty,min=1"`
	StartAt         *time.Time        `json:"startAt,omitempty"`
	EndAt           *time.Time        `json:"endAt,omitempty" validate:"omitempty,gtfield=StartAt"`
	Questions       []QuestionPayload `json:"questions" validate:"dive"`
	ModuleIDs       []bson.ObjectID   `json:"module_ids"`
}

// ToQuestion builds the stored question; an absent point becomes the default.
func (p *QuestionPayload) ToQuestion() Question {
	q := Question{
		Text:    p.Text,
		Options: p.Options,
		Point:   DefaultQuestionPoint,
	}
	if p.CorrectOptionIndex != nil {
		q.CorrectOptionIndex = *p.CorrectOptionIndex
	}
	if p.Point != nil {
		q.Point = *p.Point
	}
	return q
}

type AnswerInput struct {
	Question      string `json:"question" validate:"required"`
	SelectedIndex *int   `json:"selectedIndex,omitempty" validate:"omitempty,min=-1"`
}

// SubmissionRequest is the grading input. Student is taken from the caller identity.
type SubmissionRequest struct {
	Quiz      string        `json:"quiz"`
	Student   string        `json:"-"`
	Answers   []AnswerInput `json:"answers" validate:"dive"`
	StartedAt *time.Time    `json:"startedAt,omitempty"`
}

// QuestionUpdate overwrites a stored question in place. A nil Point leaves the stored point as is.
type QuestionUpdate struct {
	Text               string
	Options            []string
	CorrectOptionIndex int
	Point              *float64
}

func (p *QuestionPayload) ToUpdate() QuestionUpdate {
	u := QuestionUpdate{
		Text:    p.Text,
		Options: p.Options,
		Point:   p.Point,
	}
	if p.CorrectOptionIndex != nil {
		u.CorrectOptionIndex = *p.CorrectOptionIndex
	}
	return u
}
