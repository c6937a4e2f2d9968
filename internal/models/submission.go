package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// UnansweredIndex marks a question the student did not answer.
const UnansweredIndex = -1

type AnswerFeedback struct {
	Question           bson.ObjectID `bson:"question" json:"question"`
	QuestionText       string        `bson:"questionText" json:"questionText"`
	Options            []string      `bson:"options" json:"options"`
	Point              float64       `bson:"point" json:"point"`
	SelectedIndex      int           `bson:"selectedIndex" json:"selectedIndex"`
	CorrectOptionIndex int           `bson:"correctOptionIndex" json:"correctOptionIndex"`
	IsCorrect          bool          `bson:"isCorrect" json:"isCorrect"`
}

type Submission struct {
	ID              bson.ObjectID    `bson:"_id,omitempty" json:"id"`
	Quiz            bson.ObjectID    `bson:"quiz" json:"quiz"`
	Student         string           `bson:"student" json:"student"`
	Answers         []AnswerFeedback `bson:"answers" json:"answers"`
	ScoreTotal      float64          `bson:"scoreTotal" json:"scoreTotal"`
	TotalQuizPoints float64          `bson:"totalQuizPoints" json:"totalQuizPoints"`
	StartedAt       *time.Time       `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	SubmittedAt     time.Time        `bson:"submittedAt" json:"submittedAt"`
}

// SubmissionFilter narrows ListSubmissions; empty fields match everything.
type SubmissionFilter struct {
	Quiz    *bson.ObjectID
	Student string
}

// QuizTakenStatus reports whether a student has a submission for a quiz.
type QuizTakenStatus struct {
	IsTaken    bool        `json:"isTaken"`
	Submission *Submission `json:"submission"`
}
