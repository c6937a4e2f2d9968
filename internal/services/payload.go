package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	"classroom-quiz-service/internal/apperror"
	"classroom-quiz-service/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeQuizDetails accepts quiz_details either as a JSON object or as a string holding one.
func DecodeQuizDetails(raw []byte) (*models.QuizDetailsPayload, error) {
	const op = "DecodeQuizDetails"

	body := bytes.TrimSpace(raw)
	if len(body) > 0 && body[0] == '"' {
		var encoded string
		if err := json.Unmarshal(body, &encoded); err != nil {
			return nil, apperror.Wrap(apperror.InvalidPayload, op, "invalid quiz_details payload", err)
		}
		body = bytes.TrimSpace([]byte(encoded))
	}
	if len(body) == 0 || body[0] != '{' {
		return nil, apperror.New(apperror.InvalidPayload, op, "quiz_details must be a JSON object")
	}

	var details models.QuizDetailsPayload
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, apperror.Wrap(apperror.InvalidPayload, op, "invalid quiz_details payload", err)
	}
	if err := validate.Struct(&details); err != nil {
		return nil, apperror.Wrap(apperror.InvalidPayload, op, "quiz_details validation failed", err)
	}
	for i, q := range details.Questions {
		if *q.CorrectOptionIndex >= len(q.Options) {
			return nil, apperror.New(apperror.InvalidPayload, op,
				fmt.Sprintf("questions[%d]: correctOptionIndex %d out of range for %d options", i, *q.CorrectOptionIndex, len(q.Options)))
		}
	}
	return &details, nil
}

func ValidateSubmission(req *models.SubmissionRequest) error {
	if err := validate.Struct(req); err != nil {
		return apperror.Wrap(apperror.InvalidPayload, "ValidateSubmission", "submission validation failed", err)
	}
	return nil
}
