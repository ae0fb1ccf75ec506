package routes_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizplatform/backend/config"
	"quizplatform/backend/routes"
	"quizplatform/backend/utils"
)

const (
	adminEmail    = "admin@quiz.test"
	adminPassword = "s3cret"
)

type envelope struct {
	Success bool                   `json:"success"`
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Data    interface{}            `json:"data"`
	Details map[string]interface{} `json:"details"`
	Total   int64                  `json:"total"`
}

func (e envelope) object(t *testing.T) map[string]interface{} {
	t.Helper()
	m, ok := e.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", e.Data)
	return m
}

// submission unwraps the body of a submit response.
func (e envelope) submission(t *testing.T) map[string]interface{} {
	t.Helper()
	m, ok := e.object(t)["submission"].(map[string]interface{})
	require.True(t, ok, "submit response has no submission: %v", e.Data)
	return m
}

type testServer struct {
	app *fiber.App
}

func setupApp(t *testing.T) *testServer {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := &config.Config{
		DBDriver:          "sqlite",
		SQLitePath:        fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		JWTSecret:         "test-secret",
		JWTTTL:            time.Hour,
		AdminEmail:        adminEmail,
		AdminPassword:     adminPassword,
		CacheTTL:          time.Minute,
		SubmitMaxAttempts: 3,
		SubmitBackoff:     time.Millisecond,
	}
	logger := log.New(io.Discard, "", 0)

	db, err := utils.InitDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, utils.SeedAdmin(context.Background(), db, cfg, logger))

	return &testServer{app: routes.NewApp(routes.Deps{DB: db, Cfg: cfg, Logger: logger})}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.send(t, req)
}

func (s *testServer) upload(t *testing.T, path, token, csv string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "import.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		require.NoError(t, sonic.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/auth/admin/login", "", fiber.Map{
		"email": adminEmail, "password": adminPassword,
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	return env.object(t)["token"].(string)
}

// createQuestionSet makes a set with one true-false question worth 1 point and
// returns the set and question IDs.
func (s *testServer) createQuestionSet(t *testing.T, token, title string) (string, string) {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/admin/question-sets", token, fiber.Map{
		"title": title,
		"questions": []fiber.Map{
			{"type": "true-false", "text": title + " is true", "correctAnswer": "true", "points": 1},
		},
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	set := env.object(t)
	questions := set["questions"].([]interface{})
	require.Len(t, questions, 1)
	return set["id"].(string), questions[0].(map[string]interface{})["id"].(string)
}

type quizFixture struct {
	quizID      string
	questionIDs [4]string
}

func (s *testServer) createQuiz(t *testing.T, token string, settings fiber.Map) quizFixture {
	t.Helper()
	var f quizFixture
	setIDs := make([]string, 4)
	for i := range setIDs {
		setIDs[i], f.questionIDs[i] = s.createQuestionSet(t, token, fmt.Sprintf("Set %d", i+1))
	}
	status, env := s.do(t, http.MethodPost, "/api/admin/quizzes", token, fiber.Map{
		"title":          "Philosophy basics",
		"questionSetIds": setIDs,
		"settings":       settings,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	quiz := env.object(t)
	assert.Equal(t, float64(4), quiz["totalPoints"])
	f.quizID = quiz["id"].(string)
	return f
}

func TestHealth(t *testing.T) {
	s := setupApp(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestAdminLogin(t *testing.T) {
	s := setupApp(t)

	status, env := s.do(t, http.MethodPost, "/api/auth/admin/login", "", fiber.Map{
		"email": adminEmail, "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)

	status, env = s.do(t, http.MethodPost, "/api/auth/admin/login", "", fiber.Map{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "email", env.Details["email"])
	assert.Equal(t, "required", env.Details["password"])

	assert.NotEmpty(t, s.adminToken(t))
}

func TestRoutesRequireTheRightRole(t *testing.T) {
	s := setupApp(t)

	status, _ := s.do(t, http.MethodGet, "/api/admin/quizzes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/admin/quizzes", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := s.do(t, http.MethodPost, "/api/auth/quiztaker/register", "", fiber.Map{
		"email": "reg@quiz.test", "name": "Reg",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	takerToken := env.object(t)["token"].(string)

	status, _ = s.do(t, http.MethodGet, "/api/admin/quizzes", takerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodGet, "/api/quiz/me", s.adminToken(t), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = s.do(t, http.MethodGet, "/api/quiz/me", takerToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "regular", env.object(t)["accountType"])
}

func TestRegisterTwiceConflicts(t *testing.T) {
	s := setupApp(t)
	body := fiber.Map{"email": "dup@quiz.test"}

	status, _ := s.do(t, http.MethodPost, "/api/auth/quiztaker/register", "", body)
	require.Equal(t, http.StatusCreated, status)
	status, _ = s.do(t, http.MethodPost, "/api/auth/quiztaker/register", "", body)
	assert.Equal(t, http.StatusConflict, status)
}

func TestPremiumQuizFlow(t *testing.T) {
	s := setupApp(t)
	admin := s.adminToken(t)
	f := s.createQuiz(t, admin, fiber.Map{"showCorrectAnswers": true})

	status, env := s.do(t, http.MethodPost, "/api/admin/quiztakers", admin, fiber.Map{
		"email": "premium@quiz.test", "name": "Premium", "accountType": "premium",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	taker := env.object(t)
	takerID := taker["id"].(string)
	accessCode := taker["accessCode"].(string)
	require.NotEmpty(t, accessCode)

	status, env = s.do(t, http.MethodPost, "/api/admin/quiztakers/"+takerID+"/assign", admin, fiber.Map{"quizId": f.quizID})
	require.Equal(t, http.StatusCreated, status, env.Message)
	status, _ = s.do(t, http.MethodPost, "/api/admin/quiztakers/"+takerID+"/assign", admin, fiber.Map{"quizId": f.quizID})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/api/auth/quiztaker/login", "", fiber.Map{
		"email": "premium@quiz.test", "accessCode": "WRONG",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, env = s.do(t, http.MethodPost, "/api/auth/quiztaker/login", "", fiber.Map{
		"email": "Premium@Quiz.test", "accessCode": accessCode,
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	token := env.object(t)["token"].(string)

	status, env = s.do(t, http.MethodGet, "/api/quiz/available", token, nil)
	require.Equal(t, http.StatusOK, status)
	available := env.Data.([]interface{})
	require.Len(t, available, 1)
	assert.Equal(t, "pending", available[0].(map[string]interface{})["status"])

	status, env = s.do(t, http.MethodGet, "/api/quiz/"+f.quizID, token, nil)
	require.Equal(t, http.StatusOK, status)
	for _, slot := range env.object(t)["questionSets"].([]interface{}) {
		for _, q := range slot.(map[string]interface{})["questions"].([]interface{}) {
			assert.NotContains(t, q.(map[string]interface{}), "correctAnswer")
		}
	}

	answer := func(i int) fiber.Map {
		return fiber.Map{
			"questionSetOrder":  i + 1,
			"answers":           []fiber.Map{{"questionId": f.questionIDs[i], "answer": "True"}},
			"isFinalSubmission": true,
		}
	}

	status, env = s.do(t, http.MethodPost, "/api/quiz/"+f.quizID+"/submit", token, answer(0))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Message, "quiz not started")

	status, _ = s.do(t, http.MethodPost, "/api/quiz/"+f.quizID+"/start", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, env = s.do(t, http.MethodPut, "/api/quiz/"+f.quizID+"/order", token, fiber.Map{"order": []int{2, 1, 4, 3}})
	require.Equal(t, http.StatusOK, status, env.Message)

	var last map[string]interface{}
	for _, i := range []int{1, 0, 3, 2} {
		path := fmt.Sprintf("/api/quiz/%s/question-sets/%d/start", f.quizID, i+1)
		status, env = s.do(t, http.MethodPost, path, token, nil)
		require.Equal(t, http.StatusOK, status, env.Message)

		status, env = s.do(t, http.MethodPost, "/api/quiz/"+f.quizID+"/submit", token, answer(i))
		require.Equal(t, http.StatusOK, status, env.Message)
		last = env.submission(t)

		if i == 1 {
			status, env = s.do(t, http.MethodPut, "/api/quiz/"+f.quizID+"/order", token, fiber.Map{"order": []int{1, 2, 3, 4}})
			assert.Equal(t, http.StatusBadRequest, status)
		}
	}
	assert.Equal(t, true, last["quizCompleted"])
	assert.Equal(t, "auto-graded", last["status"])
	assert.Equal(t, float64(4), last["overallScore"])
	assert.Equal(t, float64(100), last["percentage"])

	status, env = s.do(t, http.MethodGet, "/api/quiz/"+f.quizID+"/result", token, nil)
	require.Equal(t, http.StatusOK, status)
	result := env.object(t)
	assert.Equal(t, float64(4), result["score"])
	answers := result["answers"].([]interface{})
	require.Len(t, answers, 4)
	assert.Equal(t, "true", answers[0].(map[string]interface{})["correctAnswer"])

	status, env = s.do(t, http.MethodGet, "/api/quiz/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, env.object(t)["quizzesTaken"], 1)

	status, env = s.do(t, http.MethodGet, "/api/admin/quizzes/"+f.quizID+"/report", admin, nil)
	require.Equal(t, http.StatusOK, status)
	report := env.object(t)
	assert.Equal(t, float64(1), report["attempts"])
	assert.Equal(t, float64(100), report["averagePercentage"])

	status, env = s.do(t, http.MethodGet, "/api/admin/submissions?quizId="+f.quizID+"&status=auto-graded", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, env.Data, 1)

	// completed assignments stay
	status, _ = s.do(t, http.MethodDelete, "/api/admin/quiztakers/"+takerID+"/assign/"+f.quizID, admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRegularTakerNeedsOpenQuiz(t *testing.T) {
	s := setupApp(t)
	admin := s.adminToken(t)
	f := s.createQuiz(t, admin, fiber.Map{"mode": "assigned"})

	status, env := s.do(t, http.MethodPost, "/api/auth/quiztaker/register", "", fiber.Map{"email": "open@quiz.test"})
	require.Equal(t, http.StatusCreated, status)
	token := env.object(t)["token"].(string)

	status, _ = s.do(t, http.MethodGet, "/api/quiz/"+f.quizID, token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = s.do(t, http.MethodPut, "/api/admin/quizzes/"+f.quizID+"/settings", admin, fiber.Map{"mode": "open"})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = s.do(t, http.MethodGet, "/api/quiz/available", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, env.Data, 1)

	status, env = s.do(t, http.MethodPost, "/api/quiz/"+f.quizID+"/submit", token, fiber.Map{
		"questionSetOrder": 1,
		"answers":          []fiber.Map{{"questionId": f.questionIDs[0], "answer": "false"}},
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	draft := env.submission(t)
	assert.Equal(t, "in-progress", draft["status"])
	assert.Equal(t, float64(0), draft["overallScore"])
}

func TestSubmitValidation(t *testing.T) {
	s := setupApp(t)
	status, env := s.do(t, http.MethodPost, "/api/auth/quiztaker/register", "", fiber.Map{"email": "v@quiz.test"})
	require.Equal(t, http.StatusCreated, status)
	token := env.object(t)["token"].(string)

	status, env = s.do(t, http.MethodPost, "/api/quiz/some-quiz/submit", token, fiber.Map{
		"questionSetOrder": 5,
		"answers":          []fiber.Map{},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "max=4", env.Details["questionSetOrder"])
	assert.Equal(t, "min=1", env.Details["answers"])
}

func TestInactiveTakerIsLockedOut(t *testing.T) {
	s := setupApp(t)
	admin := s.adminToken(t)

	status, env := s.do(t, http.MethodPost, "/api/auth/quiztaker/register", "", fiber.Map{"email": "gone@quiz.test"})
	require.Equal(t, http.StatusCreated, status)
	data := env.object(t)
	token := data["token"].(string)
	takerID := data["quizTaker"].(map[string]interface{})["id"].(string)

	status, env = s.do(t, http.MethodPut, "/api/admin/quiztakers/"+takerID, admin, fiber.Map{"isActive": false})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, _ = s.do(t, http.MethodGet, "/api/quiz/me", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(t, http.MethodPost, "/api/auth/quiztaker/login", "", fiber.Map{"email": "gone@quiz.test"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestQuestionSetImportAndDeleteGuard(t *testing.T) {
	s := setupApp(t)
	admin := s.adminToken(t)
	setID, _ := s.createQuestionSet(t, admin, "Imported")

	csv := "type,text,options,correctAnswer,points\n" +
		"multiple-choice,Capital of France?,A. Paris|B. Lyon,A,2\n" +
		"essay,Explain the cave,,,5\n"
	status, env := s.upload(t, "/api/admin/question-sets/"+setID+"/import", admin, csv)
	require.Equal(t, http.StatusOK, status, env.Message)
	data := env.object(t)
	assert.Equal(t, float64(2), data["imported"])
	set := data["questionSet"].(map[string]interface{})
	assert.Equal(t, float64(3), set["questionCount"])
	assert.Equal(t, float64(8), set["totalPoints"])

	status, env = s.upload(t, "/api/admin/question-sets/"+setID+"/import", admin,
		"type,text,options,correctAnswer,points\nmultiple-choice,Bad,A. One|B. Two,C,1\n")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Message, "row 2")

	otherIDs := make([]string, 3)
	for i := range otherIDs {
		otherIDs[i], _ = s.createQuestionSet(t, admin, fmt.Sprintf("Other %d", i))
	}
	status, env = s.do(t, http.MethodPost, "/api/admin/quiztakers", admin, fiber.Map{
		"email":                  "combo@quiz.test",
		"accountType":            "regular",
		"questionSetCombination": append([]string{setID}, otherIDs...),
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, _ = s.do(t, http.MethodDelete, "/api/admin/question-sets/"+setID, admin, nil)
	assert.Equal(t, http.StatusConflict, status)
	status, _ = s.do(t, http.MethodDelete, "/api/admin/question-sets/"+otherIDs[0]+"x", admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestQuizTakerImport(t *testing.T) {
	s := setupApp(t)
	admin := s.adminToken(t)

	csv := "email,name,accountType\n" +
		"a@quiz.test,A,premium\n" +
		"b@quiz.test,B,\n" +
		"not-an-email,C,regular\n" +
		"a@quiz.test,A again,regular\n"
	status, env := s.upload(t, "/api/admin/quiztakers/import", admin, csv)
	require.Equal(t, http.StatusOK, status, env.Message)
	data := env.object(t)
	assert.Len(t, data["created"], 2)
	failed := data["failed"].([]interface{})
	require.Len(t, failed, 2)
	assert.Equal(t, float64(4), failed[0].(map[string]interface{})["row"])
	assert.Equal(t, float64(5), failed[1].(map[string]interface{})["row"])

	status, env = s.do(t, http.MethodGet, "/api/admin/quiztakers?accountType=premium", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), env.Total)
}

func TestUnknownRoute(t *testing.T) {
	s := setupApp(t)

	status, env := s.do(t, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
	assert.Equal(t, "Not Found", env.Error)
	assert.Contains(t, env.Message, "/api/nowhere")
}
