package handlers

import (
	"context"
	"encoding/json"
	"time"

	"classroom-quiz-service/internal/apperror"
	"classroom-quiz-service/internal/middleware"
	"classroom-quiz-service/internal/models"
	"classroom-quiz-service/internal/services"

	"github.com/gofiber/fiber/v3"
)

type QuizAuthoring interface {
	CreateQuizWithDetails(ctx context.Context, details *models.QuizDetailsPayload, userID string) (*models.PopulatedQuiz, error)
	UpdateQuizWithDetails(ctx context.Context, quizID string, details *models.QuizDetailsPayload, userID string) (*services.UpdateResult, error)
}

type QuizReader interface {
	GetQuiz(ctx context.Context, quizID string) (*models.PopulatedQuiz, error)
	ListQuizzes(ctx context.Context) ([]*models.PopulatedQuiz, error)
	ListQuizzesByModule(ctx context.Context, moduleID string) ([]*models.PopulatedQuiz, error)
	DeleteQuiz(ctx context.Context, quizID, userID string) error
}

type QuizHandler struct {
	authoring QuizAuthoring
	quizzes   QuizReader
}

func NewQuizHandler(authoring QuizAuthoring, quizzes QuizReader) *QuizHandler {
	return &QuizHandler{
		authoring: authoring,
		quizzes:   quizzes,
	}
}

// quizDetailsRequest carries quiz_details as either an object or a JSON string.
type quizDetailsRequest struct {
	QuizDetails json.RawMessage `json:"quiz_details"`
}

func (h *QuizHandler) RegisterRoutes(app *fiber.App) {
	quizGroup := app.Group("/protected/quizzes", middleware.UserRequired())

	quizGroup.Post("/from-details", middleware.PermissionRequired(middleware.WriteQuizPermission), h.CreateQuizWithDetails)
	quizGroup.Put("/:id/details", middleware.PermissionRequired(middleware.WriteQuizPermission), h.UpdateQuizWithDetails)
	quizGroup.Get("/", h.ListQuizzes)
	quizGroup.Get("/:id", h.GetQuiz)
	quizGroup.Delete("/:id", middleware.PermissionRequired(middleware.DeleteQuizPermission), h.DeleteQuiz)

	moduleGroup := app.Group("/protected/modules", middleware.UserRequired())
	moduleGroup.Get("/:moduleId/quizzes", h.ListQuizzesByModule)
}

func bindDetails(c fiber.Ctx) (*models.QuizDetailsPayload, error) {
	var req quizDetailsRequest
	if err := c.Bind().Body(&req); err != nil {
		return nil, apperror.Wrap(apperror.InvalidPayload, "bindDetails", "Invalid request body", err)
	}
	return services.DecodeQuizDetails(req.QuizDetails)
}

func (h *QuizHandler) CreateQuizWithDetails(c fiber.Ctx) error {
	details, err := bindDetails(c)
	if err != nil {
		return writeError(c, "decode quiz details", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	quiz, err := h.authoring.CreateQuizWithDetails(ctx, details, middleware.UserID(c))
	if err != nil {
		return writeError(c, "create quiz", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Quiz created successfully",
		"data": fiber.Map{
			"quiz": quiz,
		},
	})
}

func (h *QuizHandler) UpdateQuizWithDetails(c fiber.Ctx) error {
	quizID := c.Params("id")
	details, err := bindDetails(c)
	if err != nil {
		return writeError(c, "decode quiz details", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := h.authoring.UpdateQuizWithDetails(ctx, quizID, details, middleware.UserID(c))
	if err != nil {
		return writeError(c, "update quiz", err)
	}

	orphaned := make([]string, len(result.OrphanedQuestions))
	for i, id := range result.OrphanedQuestions {
		orphaned[i] = id.Hex()
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Quiz updated successfully",
		"data": fiber.Map{
			"quiz":              result.Quiz,
			"orphanedQuestions": orphaned,
		},
	})
}

func (h *QuizHandler) GetQuiz(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	quiz, err := h.quizzes.GetQuiz(ctx, c.Params("id"))
	if err != nil {
		return writeError(c, "retrieve quiz", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"quiz": quiz,
		},
	})
}

func (h *QuizHandler) ListQuizzes(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	quizzes, err := h.quizzes.ListQuizzes(ctx)
	if err != nil {
		return writeError(c, "list quizzes", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"quizzes": quizzes,
			"count":   len(quizzes),
		},
	})
}

func (h *QuizHandler) ListQuizzesByModule(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	quizzes, err := h.quizzes.ListQuizzesByModule(ctx, c.Params("moduleId"))
	if err != nil {
		return writeError(c, "list module quizzes", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"quizzes": quizzes,
			"count":   len(quizzes),
		},
	})
}

func (h *QuizHandler) DeleteQuiz(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.quizzes.DeleteQuiz(ctx, c.Params("id"), middleware.UserID(c)); err != nil {
		return writeError(c, "delete quiz", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Quiz deleted successfully",
	})
}
