package handlers

import (
	"context"
	"time"

	"classroom-quiz-service/internal/apperror"
	"classroom-quiz-service/internal/middleware"
	"classroom-quiz-service/internal/models"
	"classroom-quiz-service/internal/services"

	"github.com/gofiber/fiber/v3"
)

type Submissions interface {
	CreateSubmission(ctx context.Context, req *models.SubmissionRequest) (*models.Submission, error)
	GetSubmission(ctx context.Context, submissionID string) (*models.Submission, error)
	ListSubmissions(ctx context.Context, quizID, studentID string) ([]models.Submission, error)
	DeleteSubmission(ctx context.Context, submissionID string) error
	CheckQuizTaken(ctx context.Context, studentID, quizID string) (*models.QuizTakenStatus, error)
	GetSubmissionByQuizAndStudent(ctx context.Context, quizID, studentID string) (*models.Submission, error)
}

type SubmissionHandler struct {
	submissions Submissions
}

func NewSubmissionHandler(submissions Submissions) *SubmissionHandler {
	return &SubmissionHandler{
		submissions: submissions,
	}
}

func (h *SubmissionHandler) RegisterRoutes(app *fiber.App) {
	group := app.Group("/protected/submissions", middleware.UserRequired())

	group.Post("/", h.CreateSubmission)
	group.Get("/", h.ListSubmissions)
	group.Get("/quiz/:quizId/taken", h.CheckQuizTaken)
	group.Get("/quiz/:quizId/student/:studentId", h.GetSubmissionByQuizAndStudent)
	group.Get("/:id", h.GetSubmission)
	group.Delete("/:id", middleware.PermissionRequired(middleware.DeleteSubmissionPermission), h.DeleteSubmission)
}

func (h *SubmissionHandler) CreateSubmission(c fiber.Ctx) error {
	var req models.SubmissionRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Student = middleware.UserID(c)

	if err := services.ValidateSubmission(&req); err != nil {
		return writeError(c, "validate submission", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	submission, err := h.submissions.CreateSubmission(ctx, &req)
	if err != nil {
		return writeError(c, "create submission", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Submission graded successfully",
		"data": fiber.Map{
			"submission": submission,
		},
	})
}

// ListSubmissions shows other students' submissions only to callers allowed to read them all.
func (h *SubmissionHandler) ListSubmissions(c fiber.Ctx) error {
	studentID := c.Query("student")
	if !middleware.HasPermission(c, middleware.ReadAllSubmissionPermission) {
		studentID = middleware.UserID(c)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	submissions, err := h.submissions.ListSubmissions(ctx, c.Query("quiz"), studentID)
	if err != nil {
		return writeError(c, "list submissions", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"submissions": submissions,
			"count":       len(submissions),
		},
	})
}

func (h *SubmissionHandler) GetSubmission(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	submission, err := h.submissions.GetSubmission(ctx, c.Params("id"))
	if err != nil {
		return writeError(c, "retrieve submission", err)
	}
	if submission.Student != middleware.UserID(c) && !middleware.HasPermission(c, middleware.ReadAllSubmissionPermission) {
		return writeError(c, "retrieve submission", apperror.New(apperror.Forbidden, "GetSubmission", "submission belongs to another student"))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"submission": submission,
		},
	})
}

func (h *SubmissionHandler) DeleteSubmission(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.submissions.DeleteSubmission(ctx, c.Params("id")); err != nil {
		return writeError(c, "delete submission", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Submission deleted successfully",
	})
}

func (h *SubmissionHandler) CheckQuizTaken(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := h.submissions.CheckQuizTaken(ctx, middleware.UserID(c), c.Params("quizId"))
	if err != nil {
		return writeError(c, "check quiz status", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": status,
	})
}

func (h *SubmissionHandler) GetSubmissionByQuizAndStudent(c fiber.Ctx) error {
	studentID := c.Params("studentId")
	if studentID != middleware.UserID(c) && !middleware.HasPermission(c, middleware.ReadAllSubmissionPermission) {
		return writeError(c, "retrieve submission", apperror.New(apperror.Forbidden, "GetSubmissionByQuizAndStudent", "submission belongs to another student"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	submission, err := h.submissions.GetSubmissionByQuizAndStudent(ctx, c.Params("quizId"), studentID)
	if err != nil {
		return writeError(c, "retrieve submission", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"submission": submission,
		},
	})
}
