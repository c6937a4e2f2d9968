package handlers

import (
	"errors"
	"log"

	"classroom-quiz-service/internal/apperror"

	"github.com/gofiber/fiber/v3"
)

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.InvalidPayload, apperror.MissingQuestions, apperror.MissingModules,
		apperror.MissingQuiz, apperror.CrossGroupModules:
		return fiber.StatusBadRequest
	case apperror.Forbidden:
		return fiber.StatusForbidden
	case apperror.ModuleNotFound, apperror.GroupNotFound, apperror.QuizNotFound,
		apperror.NoQuestions, apperror.SubmissionNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders a service error as {"error", "code"}. Storage and unknown
// failures are logged and hidden behind a generic message.
func writeError(c fiber.Ctx, action string, err error) error {
	kind := apperror.KindOf(err)
	status := statusFor(kind)
	if status == fiber.StatusInternalServerError {
		log.Printf("Failed to %s: %v", action, err)
		if kind == "" {
			kind = apperror.StorageFailure
		}
		return c.Status(status).JSON(fiber.Map{
			"error": "Failed to " + action,
			"code":  kind,
		})
	}

	message := err.Error()
	var appErr *apperror.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		message = appErr.Message
		if kind == apperror.InvalidPayload && appErr.Err != nil {
			message += ": " + appErr.Err.Error()
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  kind,
	})
}

func badRequest(c fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
		"code":  apperror.InvalidPayload,
	})
}
