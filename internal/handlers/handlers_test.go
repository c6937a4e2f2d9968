package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"classroom-quiz-service/internal/apperror"
	"classroom-quiz-service/internal/middleware"
	"classroom-quiz-service/internal/models"
	"classroom-quiz-service/internal/services"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const detailsObject = `{"title":"Fractions","questions":[{"text":"1/2 + 1/4?","options":["3/4","2/6"],"correctOptionIndex":0}],"module_ids":["65f1c2a4e4b0a1b2c3d4e5f6"]}`

type fakeQuizzes struct {
	err        error
	gotDetails *models.QuizDetailsPayload
	gotUser    string
	gotQuizID  string
	orphaned   []bson.ObjectID
}

func (f *fakeQuizzes) CreateQuizWithDetails(_ context.Context, details *models.QuizDetailsPayload, userID string) (*models.PopulatedQuiz, error) {
	f.gotDetails, f.gotUser = details, userID
	if f.err != nil {
		return nil, f.err
	}
	return &models.PopulatedQuiz{ID: bson.NewObjectID(), Title: details.Title, Questions: []models.PublicQuestion{}}, nil
}

func (f *fakeQuizzes) UpdateQuizWithDetails(_ context.Context, quizID string, details *models.QuizDetailsPayload, userID string) (*services.UpdateResult, error) {
	f.gotQuizID, f.gotDetails, f.gotUser = quizID, details, userID
	if f.err != nil {
		return nil, f.err
	}
	return &services.UpdateResult{
		Quiz:              &models.PopulatedQuiz{Title: details.Title, Questions: []models.PublicQuestion{}},
		OrphanedQuestions: f.orphaned,
	}, nil
}

func (f *fakeQuizzes) GetQuiz(_ context.Context, quizID string) (*models.PopulatedQuiz, error) {
	f.gotQuizID = quizID
	if f.err != nil {
		return nil, f.err
	}
	return &models.PopulatedQuiz{Title: "Fractions", Questions: []models.PublicQuestion{}}, nil
}

func (f *fakeQuizzes) ListQuizzes(context.Context) ([]*models.PopulatedQuiz, error) {
	return []*models.PopulatedQuiz{{Title: "a"}, {Title: "b"}}, f.err
}

func (f *fakeQuizzes) ListQuizzesByModule(_ context.Context, moduleID string) ([]*models.PopulatedQuiz, error) {
	f.gotQuizID = moduleID
	return []*models.PopulatedQuiz{}, f.err
}

func (f *fakeQuizzes) DeleteQuiz(_ context.Context, quizID, userID string) error {
	f.gotQuizID, f.gotUser = quizID, userID
	return f.err
}

type fakeSubmissions struct {
	err        error
	gotRequest *models.SubmissionRequest
	gotQuiz    string
	gotStudent string
	stored     *models.Submission
}

func (f *fakeSubmissions) CreateSubmission(_ context.Context, req *models.SubmissionRequest) (*models.Submission, error) {
	f.gotRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Submission{ID: bson.NewObjectID(), Student: req.Student, ScoreTotal: 1, TotalQuizPoints: 2}, nil
}

func (f *fakeSubmissions) GetSubmission(context.Context, string) (*models.Submission, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stored, nil
}

func (f *fakeSubmissions) ListSubmissions(_ context.Context, quizID, studentID string) ([]models.Submission, error) {
	f.gotQuiz, f.gotStudent = quizID, studentID
	return []models.Submission{}, f.err
}

func (f *fakeSubmissions) DeleteSubmission(context.Context, string) error {
	return f.err
}

func (f *fakeSubmissions) CheckQuizTaken(_ context.Context, studentID, quizID string) (*models.QuizTakenStatus, error) {
	f.gotQuiz, f.gotStudent = quizID, studentID
	return &models.QuizTakenStatus{IsTaken: false}, f.err
}

func (f *fakeSubmissions) GetSubmissionByQuizAndStudent(_ context.Context, quizID, studentID string) (*models.Submission, error) {
	f.gotQuiz, f.gotStudent = quizID, studentID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Submission{Student: studentID}, nil
}

func newTestApp(quizzes *fakeQuizzes, submissions *fakeSubmissions) *fiber.App {
	app := fiber.New()
	NewQuizHandler(quizzes, quizzes).RegisterRoutes(app)
	NewSubmissionHandler(submissions).RegisterRoutes(app)
	return app
}

type requestOption func(*http.Request)

func asUser(userID string, permissions ...string) requestOption {
	return func(r *http.Request) {
		r.Header.Set(middleware.UserIDHeader, userID)
		if len(permissions) > 0 {
			r.Header.Set(middleware.UserPermissionsHeader, strings.Join(permissions, ","))
		}
	}
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string, opts ...requestOption) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestCreateQuizAcceptsObjectAndString(t *testing.T) {
	encoded, err := json.Marshal(detailsObject)
	require.NoError(t, err)

	for name, details := range map[string]string{"object": detailsObject, "string": string(encoded)} {
		t.Run(name, func(t *testing.T) {
			quizzes := &fakeQuizzes{}
			app := newTestApp(quizzes, &fakeSubmissions{})

			status, body := doRequest(t, app, http.MethodPost, "/protected/quizzes/from-details",
				`{"quiz_details":`+details+`}`, asUser("owner-1", middleware.WriteQuizPermission))

			assert.Equal(t, http.StatusCreated, status)
			require.NotNil(t, quizzes.gotDetails)
			assert.Equal(t, "Fractions", quizzes.gotDetails.Title)
			assert.Equal(t, "owner-1", quizzes.gotUser)
			data := body["data"].(map[string]any)
			assert.Equal(t, "Fractions", data["quiz"].(map[string]any)["title"])
		})
	}
}

func TestCreateQuizRequiresCallerAndPermission(t *testing.T) {
	quizzes := &fakeQuizzes{}
	app := newTestApp(quizzes, &fakeSubmissions{})
	body := `{"quiz_details":` + detailsObject + `}`

	status, _ := doRequest(t, app, http.MethodPost, "/protected/quizzes/from-details", body)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doRequest(t, app, http.MethodPost, "/protected/quizzes/from-details", body, asUser("u", "read:quiz"))
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doRequest(t, app, http.MethodPost, "/protected/quizzes/from-details", body, asUser("u", "admin"))
	assert.Equal(t, http.StatusCreated, status)
}

func TestCreateQuizInvalidPayload(t *testing.T) {
	quizzes := &fakeQuizzes{}
	app := newTestApp(quizzes, &fakeSubmissions{})

	tests := map[string]string{
		"not json":           `{"quiz_details":`,
		"missing details":    `{}`,
		"details is array":   `{"quiz_details":[1]}`,
		"one option":         `{"quiz_details":{"title":"t","questions":[{"text":"q","options":["a"],"correctOptionIndex":0}],"module_ids":[]}}`,
		"index out of range": `{"quiz_details":{"title":"t","questions":[{"text":"q","options":["a","b"],"correctOptionIndex":3}],"module_ids":[]}}`,
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			status, body := doRequest(t, app, http.MethodPost, "/protected/quizzes/from-details", payload, asUser("u", middleware.WriteQuizPermission))
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, string(apperror.InvalidPayload), body["code"])
		})
	}
	assert.Nil(t, quizzes.gotDetails)
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		kind   apperror.Kind
		status int
	}{
		{apperror.MissingQuestions, http.StatusBadRequest},
		{apperror.MissingModules, http.StatusBadRequest},
		{apperror.CrossGroupModules, http.StatusBadRequest},
		{apperror.Forbidden, http.StatusForbidden},
		{apperror.ModuleNotFound, http.StatusNotFound},
		{apperror.GroupNotFound, http.StatusNotFound},
		{apperror.StorageFailure, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			quizzes := &fakeQuizzes{err: apperror.New(tt.kind, "op", "boom")}
			app := newTestApp(quizzes, &fakeSubmissions{})

			status, body := doRequest(t, app, http.MethodPost, "/protected/quizzes/from-details",
				`{"quiz_details":`+detailsObject+`}`, asUser("u", middleware.WriteQuizPermission))
			assert.Equal(t, tt.status, status)
			assert.Equal(t, string(tt.kind), body["code"])
		})
	}
}

func TestUnknownErrorIsHidden(t *testing.T) {
	quizzes := &fakeQuizzes{err: errors.New("connection reset by peer")}
	app := newTestApp(quizzes, &fakeSubmissions{})

	status, body := doRequest(t, app, http.MethodGet, "/protected/quizzes/"+bson.NewObjectID().Hex(), "", asUser("u"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Failed to retrieve quiz", body["error"])
	assert.Equal(t, string(apperror.StorageFailure), body["code"])
}

func TestUpdateQuizReturnsOrphans(t *testing.T) {
	orphan := bson.NewObjectID()
	quizzes := &fakeQuizzes{orphaned: []bson.ObjectID{orphan}}
	app := newTestApp(quizzes, &fakeSubmissions{})
	quizID := bson.NewObjectID().Hex()

	status, body := doRequest(t, app, http.MethodPut, "/protected/quizzes/"+quizID+"/details",
		`{"quiz_details":`+detailsObject+`}`, asUser("owner-1", middleware.WriteQuizPermission))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, quizID, quizzes.gotQuizID)
	assert.Equal(t, "owner-1", quizzes.gotUser)
	data := body["data"].(map[string]any)
	assert.Equal(t, []any{orphan.Hex()}, data["orphanedQuestions"])
}

func TestQuizReads(t *testing.T) {
	quizzes := &fakeQuizzes{}
	app := newTestApp(quizzes, &fakeSubmissions{})

	status, body := doRequest(t, app, http.MethodGet, "/protected/quizzes", "", asUser("u"))
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["data"].(map[string]any)["count"])

	moduleID := bson.NewObjectID().Hex()
	status, _ = doRequest(t, app, http.MethodGet, "/protected/modules/"+moduleID+"/quizzes", "", asUser("u"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, moduleID, quizzes.gotQuizID)

	quizzes.err = apperror.New(apperror.QuizNotFound, "op", "quiz not found")
	status, body = doRequest(t, app, http.MethodGet, "/protected/quizzes/abc", "", asUser("u"))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "quiz not found", body["error"])
}

func TestDeleteQuiz(t *testing.T) {
	quizzes := &fakeQuizzes{}
	app := newTestApp(quizzes, &fakeSubmissions{})
	quizID := bson.NewObjectID().Hex()

	status, _ := doRequest(t, app, http.MethodDelete, "/protected/quizzes/"+quizID, "", asUser("u", middleware.WriteQuizPermission))
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doRequest(t, app, http.MethodDelete, "/protected/quizzes/"+quizID, "", asUser("owner-1", middleware.DeleteQuizPermission))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, quizID, quizzes.gotQuizID)
	assert.Equal(t, "owner-1", quizzes.gotUser)
}

func TestCreateSubmissionUsesCallerAsStudent(t *testing.T) {
	submissions := &fakeSubmissions{}
	app := newTestApp(&fakeQuizzes{}, submissions)
	quizID := bson.NewObjectID().Hex()
	questionID := bson.NewObjectID().Hex()

	status, body := doRequest(t, app, http.MethodPost, "/protected/submissions",
		`{"quiz":"`+quizID+`","student":"someone-else","answers":[{"question":"`+questionID+`","selectedIndex":1}]}`,
		asUser("student-1"))

	assert.Equal(t, http.StatusCreated, status)
	require.NotNil(t, submissions.gotRequest)
	assert.Equal(t, "student-1", submissions.gotRequest.Student)
	assert.Equal(t, quizID, submissions.gotRequest.Quiz)
	require.Len(t, submissions.gotRequest.Answers, 1)
	assert.Equal(t, 1, *submissions.gotRequest.Answers[0].SelectedIndex)
	assert.Equal(t, "student-1", body["data"].(map[string]any)["submission"].(map[string]any)["student"])
}

func TestCreateSubmissionErrors(t *testing.T) {
	submissions := &fakeSubmissions{}
	app := newTestApp(&fakeQuizzes{}, submissions)
	q := bson.NewObjectID().Hex()

	status, body := doRequest(t, app, http.MethodPost, "/protected/submissions",
		`{"quiz":"`+q+`","answers":[{"question":"`+q+`","selectedIndex":-2}]}`, asUser("s"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(apperror.InvalidPayload), body["code"])
	assert.Nil(t, submissions.gotRequest)

	submissions.err = apperror.New(apperror.MissingQuiz, "op", "quiz id is required")
	status, body = doRequest(t, app, http.MethodPost, "/protected/submissions", `{"answers":[]}`, asUser("s"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(apperror.MissingQuiz), body["code"])

	submissions.err = apperror.New(apperror.NoQuestions, "op", "quiz has no questions")
	status, _ = doRequest(t, app, http.MethodPost, "/protected/submissions", `{"quiz":"`+q+`"}`, asUser("s"))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListSubmissionsScopedToCaller(t *testing.T) {
	submissions := &fakeSubmissions{}
	app := newTestApp(&fakeQuizzes{}, submissions)

	status, _ := doRequest(t, app, http.MethodGet, "/protected/submissions?quiz=q1&student=other", "", asUser("student-1"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "q1", submissions.gotQuiz)
	assert.Equal(t, "student-1", submissions.gotStudent)

	status, _ = doRequest(t, app, http.MethodGet, "/protected/submissions?student=other", "", asUser("instructor", middleware.ReadAllSubmissionPermission))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "other", submissions.gotStudent)
}

func TestGetSubmissionOwnership(t *testing.T) {
	submissions := &fakeSubmissions{stored: &models.Submission{ID: bson.NewObjectID(), Student: "student-1"}}
	app := newTestApp(&fakeQuizzes{}, submissions)
	path := "/protected/submissions/" + submissions.stored.ID.Hex()

	status, _ := doRequest(t, app, http.MethodGet, path, "", asUser("student-1"))
	assert.Equal(t, http.StatusOK, status)

	status, body := doRequest(t, app, http.MethodGet, path, "", asUser("student-2"))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, string(apperror.Forbidden), body["code"])

	submissions.err = apperror.New(apperror.SubmissionNotFound, "op", "submission not found")
	status, _ = doRequest(t, app, http.MethodGet, path, "", asUser("student-1"))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestQuizTakenAndLookupByStudent(t *testing.T) {
	submissions := &fakeSubmissions{}
	app := newTestApp(&fakeQuizzes{}, submissions)

	status, body := doRequest(t, app, http.MethodGet, "/protected/submissions/quiz/q1/taken", "", asUser("student-1"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "student-1", submissions.gotStudent)
	assert.Equal(t, false, body["data"].(map[string]any)["isTaken"])

	status, _ = doRequest(t, app, http.MethodGet, "/protected/submissions/quiz/q1/student/student-2", "", asUser("student-1"))
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doRequest(t, app, http.MethodGet, "/protected/submissions/quiz/q1/student/student-1", "", asUser("student-1"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "q1", submissions.gotQuiz)
}

func TestDeleteSubmissionRequiresPermission(t *testing.T) {
	app := newTestApp(&fakeQuizzes{}, &fakeSubmissions{})
	path := "/protected/submissions/" + bson.NewObjectID().Hex()

	status, _ := doRequest(t, app, http.MethodDelete, path, "", asUser("student-1"))
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doRequest(t, app, http.MethodDelete, path, "", asUser("instructor", middleware.DeleteSubmissionPermission))
	assert.Equal(t, http.StatusOK, status)
}
