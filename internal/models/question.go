package models

import "go.mongodb.org/mongo-driver/v2/bson"

const DefaultQuestionPoint = 1.0

// Question is the stored question document. CorrectOptionIndex is the answer key and
// only leaves the repository through the grading read.
type Question struct {
	ID                 bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Text               string        `bson:"text" json:"text"`
	Options            []string      `bson:"options" json:"options"`
	CorrectOptionIndex int           `bson:"correctOptionIndex" json:"correctOptionIndex"`
	Point              float64       `bson:"point" json:"point"`
}

// PublicQuestion is a question without its answer key.
type PublicQuestion struct {
	ID      bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Text    string        `bson:"text" json:"text"`
	Options []string      `bson:"options" json:"options"`
	Point   float64       `bson:"point" json:"point"`
}

// EffectivePoint is the question's weight, 1 when unset.
func (q *Question) EffectivePoint() float64 {
	if q.Point <= 0 {
		return DefaultQuestionPoint
	}
	return q.Point
}

func (q *Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:      q.ID,
		Text:    q.Text,
		Options: q.Options,
		Point:   q.Point,
	}
}
