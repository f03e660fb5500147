// Package testutil builds isolated databases, routers and signed credentials for tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tg-task-tracker/internal/config"
	"tg-task-tracker/internal/database"
	"tg-task-tracker/internal/models"
	"tg-task-tracker/internal/routes"
	"tg-task-tracker/internal/services"
)

const (
	TestBotToken      = "123456:TEST-bot-token"
	TestSecretKey     = "test-session-secret"
	TestWebhookSecret = "test-webhook-secret"

	NormalTelegramID  int64 = 42
	OtherTelegramID   int64 = 4242
	UnknownTelegramID int64 = 777
)

// TestEnv is a fully wired API over a fresh in-memory database.
type TestEnv struct {
	DB         *gorm.DB
	Router     *gin.Engine
	Services   *services.Services
	Config     *config.Config
	NormalUser *models.User
	OtherUser  *models.User
}

// TestConfig returns a configuration suitable for tests.
func TestConfig() *config.Config {
	return &config.Config{
		Env:        config.EnvLocal,
		LogLevel:   "error",
		BotToken:   TestBotToken,
		SecretKey:  TestSecretKey,
		SessionTTL: time.Hour,
		Database:   config.DatabaseConfig{Driver: config.DriverSQLite},
		HTTP: config.HTTPConfig{
			Host:            "127.0.0.1",
			Port:            "0",
			FrontendURL:     "http://localhost:3000",
			ShutdownTimeout: time.Second,
		},
		Bot: config.BotConfig{WebAppURL: "https://tasks.example.com", WebhookSecret: TestWebhookSecret, Workers: 1},
	}
}

// OpenTestDB opens a private in-memory SQLite database with the schema applied.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	db, err := database.OpenDialector(sqlite.Open(dsn), zerolog.Nop())
	require.NoError(t, err, "Failed to open test database")
	require.NoError(t, database.Migrate(db), "Failed to migrate test database")

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

// SetupTestDB creates a database seeded with two Telegram users and the router
// serving it.
func SetupTestDB(t *testing.T) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := OpenTestDB(t)
	cfg := TestConfig()
	svc := services.New(db, cfg)

	env := &TestEnv{
		DB:       db,
		Router:   routes.SetupRouter(db, cfg, svc, zerolog.Nop(), nil),
		Services: svc,
		Config:   cfg,
	}
	env.NormalUser = CreateTestUser(t, svc, NormalTelegramID, "normal_user")
	env.OtherUser = CreateTestUser(t, svc, OtherTelegramID, "other_user")
	return env
}

// CreateTestUser stores a Telegram user.
func CreateTestUser(t *testing.T, svc *services.Services, telegramID int64, username string) *models.User {
	t.Helper()

	u, created, err := svc.Users.EnsureUser(t.Context(), models.TelegramUser{
		ID:        telegramID,
		FirstName: "Test",
		Username:  username,
	})
	require.NoError(t, err)
	require.True(t, created, "user %d already exists", telegramID)
	require.NotZero(t, u.ID)
	return u
}

// SignInitData returns initData for telegramID signed with TestBotToken.
func SignInitData(t *testing.T, telegramID int64) string {
	t.Helper()

	user, err := json.Marshal(models.TelegramUser{
		ID:        telegramID,
		FirstName: "Test",
		Username:  "user" + strconv.FormatInt(telegramID, 10),
	})
	require.NoError(t, err)

	values := url.Values{}
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	values.Set("user", string(user))
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	return services.SignInitData(values, TestBotToken)
}

// AuthHeader is the Authorization header value the Web App sends for telegramID.
func AuthHeader(t *testing.T, telegramID int64) string {
	t.Helper()
	return "Bearer " + SignInitData(t, telegramID)
}

// DoRequest serves one request through router. body, when not nil, is sent as JSON.
func DoRequest(t *testing.T, router http.Handler, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// CreateTestTask creates a task through the API and returns it.
func CreateTestTask(t *testing.T, router http.Handler, auth string, payload map[string]any) *models.Task {
	t.Helper()

	resp := DoRequest(t, router, http.MethodPost, "/api/tasks", auth, payload)
	require.Equal(t, http.StatusOK, resp.Code, "Failed to create task: %s", resp.Body.String())

	var task models.Task
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &task))
	return &task
}
