package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchchat/internal/app/apptest"
	"github.com/oggyb/matchchat/internal/handler"
	"github.com/oggyb/matchchat/internal/logger"
	"github.com/oggyb/matchchat/internal/realtime"
	"github.com/oggyb/matchchat/internal/service/account"
	"github.com/oggyb/matchchat/internal/service/chat"
	"github.com/oggyb/matchchat/internal/service/match"
)

type api struct {
	t      *testing.T
	router *gin.Engine
	hub    *realtime.Hub
}

func setupAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := apptest.New(t)
	chatSvc := chat.NewService(env.App)
	hub := realtime.NewHub(logger.Discard())
	channel := realtime.NewChannel(hub, realtime.NewLocalBroker(hub), chatSvc, env.App.Tokens, logger.Discard())

	h := handler.New(env.App, account.NewService(env.App), match.NewService(env.App), chatSvc, channel)
	router := gin.New()
	router.Use(handler.RequestLogger(logger.Discard()))
	h.Register(router)
	return &api{t: t, router: router, hub: hub}
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// signup registers and logs in a user, returning its id and token.
func (a *api) signup(email, name string) (uint64, string) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/register", "", handler.RegisterInput{
		Email: email, Password: "secret1", Name: name, Age: 25, Gender: "woman",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/api/auth/login", "", handler.LoginInput{Email: email, Password: "secret1"})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[handler.LoginResponse](a.t, w)
	require.NotEmpty(a.t, resp.Token)
	return resp.User.ID, resp.Token
}

func path(prefix string, id uint64) string {
	return prefix + strconv.FormatUint(id, 10)
}

func TestPingAndAuthRequired(t *testing.T) {
	a := setupAPI(t)

	w := a.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(handler.RequestIDHeader))

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/profile/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/matches", "nope", nil).Code)
}

func TestRegisterErrors(t *testing.T) {
	a := setupAPI(t)

	w := a.do(http.MethodPost, "/api/auth/register", "", handler.RegisterInput{
		Email: "kid@test.com", Password: "secret1", Name: "Kid", Age: 17, Gender: "man",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_argument", decode[handler.ErrorResponse](t, w).Code)

	w = a.do(http.MethodPost, "/api/auth/register", "", handler.RegisterInput{
		Email: "not-an-email", Password: "secret1", Name: "Bob", Age: 30, Gender: "man",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_argument", decode[handler.ErrorResponse](t, w).Code)

	a.signup("ann@test.com", "Ann")
	w = a.do(http.MethodPost, "/api/auth/register", "", handler.RegisterInput{
		Email: "ann@test.com", Password: "secret1", Name: "Ann", Age: 30, Gender: "woman",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodPost, "/api/auth/login", "", handler.LoginInput{Email: "ann@test.com", Password: "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "password_hash")
}

func TestProfileEndpoints(t *testing.T) {
	a := setupAPI(t)
	id, token := a.signup("ann@test.com", "Ann")

	w := a.do(http.MethodGet, "/api/profile/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode[handler.ProfileResponse](t, w).UserID)

	w = a.do(http.MethodPut, "/api/profile", token, map[string]any{"bio": "runner"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "runner", decode[handler.ProfileResponse](t, w).Bio)

	w = a.do(http.MethodPut, "/api/profile", token, map[string]any{"age": 12})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/profile/photo/upload-url", token, handler.PhotoUploadInput{FileName: "a.jpg", FileType: "image/jpeg"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// TestMatchAndChatFlow drives the whole like → match → chat → unmatch path.
func TestMatchAndChatFlow(t *testing.T) {
	a := setupAPI(t)
	ann, annToken := a.signup("ann@test.com", "Ann")
	bob, bobToken := a.signup("bob@test.com", "Bob")
	_, carlToken := a.signup("carl@test.com", "Carl")

	w := a.do(http.MethodGet, "/api/profile/candidates?limit=1", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[handler.PageResponse[handler.ProfileResponse]](t, w)
	require.Len(t, page.Data, 1)
	require.NotNil(t, page.NextPageToken)

	w = a.do(http.MethodGet, "/api/profile/candidates?page_token=%21%21", annToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, path("/api/likes/", bob), annToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.False(t, decode[handler.LikeResponse](t, w).Matched)

	w = a.do(http.MethodPost, path("/api/likes/", bob), annToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodPost, path("/api/likes/", ann), annToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/likes/abc", annToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/likes/999", annToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/api/likes/received/count", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[handler.CountResponse](t, w).Count)

	w = a.do(http.MethodGet, "/api/likes/received", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	received := decode[handler.PageResponse[handler.LikeViewResponse]](t, w)
	require.Len(t, received.Data, 1)
	assert.Equal(t, ann, received.Data[0].UserID)

	w = a.do(http.MethodPost, path("/api/likes/", ann), bobToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	liked := decode[handler.LikeResponse](t, w)
	require.True(t, liked.Matched)
	require.NotNil(t, liked.Match)
	assert.ElementsMatch(t, []uint64{ann, bob}, liked.Match.UserIDs)
	matchID := liked.Match.ID

	w = a.do(http.MethodGet, "/api/likes/sent", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]handler.LikeViewResponse](t, w), 1)

	w = a.do(http.MethodGet, "/api/matches", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	matches := decode[[]handler.MatchViewResponse](t, w)
	require.Len(t, matches, 1)
	assert.Equal(t, "Bob", matches[0].Partner.Name)

	w = a.do(http.MethodPost, path("/api/messages/", matchID), annToken, handler.SendMessageInput{Content: "hi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "hi", decode[realtime.MessagePayload](t, w).Content)

	w = a.do(http.MethodPost, path("/api/messages/", matchID), carlToken, handler.SendMessageInput{Content: "intruder"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, path("/api/messages/", matchID), bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]realtime.MessagePayload](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, ann, history[0].SenderID)

	w = a.do(http.MethodGet, "/api/conversations", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	convs := decode[[]handler.ConversationResponse](t, w)
	require.Len(t, convs, 1)
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, "hi", convs[0].LastMessage.Content)

	w = a.do(http.MethodDelete, path("/api/matches/", matchID), carlToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodDelete, path("/api/matches/", matchID), bobToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(http.MethodGet, path("/api/messages/", matchID), annToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPassEndpoint(t *testing.T) {
	a := setupAPI(t)
	_, annToken := a.signup("ann@test.com", "Ann")
	bob, _ := a.signup("bob@test.com", "Bob")

	w := a.do(http.MethodPost, path("/api/passes/", bob), annToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, bob, decode[handler.PassResponse](t, w).ToID)

	w = a.do(http.MethodPost, path("/api/passes/", bob), annToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodGet, "/api/profile/candidates", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[handler.PageResponse[handler.ProfileResponse]](t, w).Data)
}
