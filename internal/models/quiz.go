package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Quiz struct {
	ID              bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title           string          `bson:"title" json:"title"`
	Description     string          `bson:"description" json:"description"`
	Questions       []bson.ObjectID `bson:"questions" json:"questions"`
	Module          *bson.ObjectID  `bson:"module,omitempty" json:"module,omitempty"`
	TotalMarks      *float64        `bson:"totalMarks,omitempty" json:"totalMarks,omitempty"`
	DurationMinutes *int            `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	StartAt         *time.Time      `bson:"startAt,omitempty" json:"startAt,omitempty"`
	EndAt           *time.Time      `bson:"endAt,omitempty" json:"endAt,omitempty"`
	CreatedAt       time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// PopulatedQuiz is a quiz with its questions resolved, in quiz order.
type PopulatedQuiz struct {
	ID              bson.ObjectID    `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Questions       []PublicQuestion `json:"questions"`
	Module          *bson.ObjectID   `json:"module,omitempty"`
	TotalMarks      *float64         `json:"totalMarks,omitempty"`
	DurationMinutes *int             `json:"durationMinutes,omitempty"`
	StartAt         *time.Time       `json:"startAt,omitempty"`
	EndAt           *time.Time       `json:"endAt,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

func NewPopulatedQuiz(q *Quiz, questions []PublicQuestion) *PopulatedQuiz {
	if questions == nil {
		questions = []PublicQuestion{}
	}
	return &PopulatedQuiz{
		ID:              q.ID,
		Title:           q.Title,
		Description:     q.Description,
		Questions:       questions,
		Module:          q.Module,
		TotalMarks:      q.TotalMarks,
		DurationMinutes: q.DurationMinutes,
		StartAt:         q.StartAt,
		EndAt:           q.EndAt,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
}

// ModuleQuiz links a quiz to a module. (moduleId, quizId) is unique.
type ModuleQuiz struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	ModuleID  bson.ObjectID `bson:"moduleId" json:"moduleId"`
	QuizID    bson.ObjectID `bson:"quizId" json:"quizId"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt" json:"updatedAt"`
}

type Module struct {
	ID    bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title string         `bson:"title" json:"title"`
	Group *bson.ObjectID `bson:"group,omitempty" json:"group,omitempty"`
}

type Group struct {
	ID    bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title string         `bson:"title" json:"title"`
	Owner *bson.ObjectID `bson:"owner,omitempty" json:"owner,omitempty"`
}

// OwnedBy reports whether userID is the group's owner.
func (g *Group) OwnedBy(userID string) bool {
	return g.Owner != nil && g.Owner.Hex() == userID
}
