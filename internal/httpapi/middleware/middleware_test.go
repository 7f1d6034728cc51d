package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/ai-assistant/internal/models"
	"github.com/suPer8Hu/ai-assistant/internal/session"
	"github.com/suPer8Hu/ai-assistant/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLimiterStore_Allow(t *testing.T) {
	s := NewLimiterStore(60, 2, time.Minute)
	defer s.Stop()

	assert.True(t, s.Allow("k"))
	assert.True(t, s.Allow("k"))
	assert.False(t, s.Allow("k"), "burst exhausted")
	assert.True(t, s.Allow("other"), "keys are independent")
}

func TestRateLimit_KeysByIPAndEmail(t *testing.T) {
	store := NewLimiterStore(1, 1, time.Minute)
	defer store.Stop()

	r := gin.New()
	r.POST("/login", RateLimit(store), func(c *gin.Context) {
		var body struct {
			Email string `json:"email"`
		}
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusOK, gin.H{"email": body.Email})
	})

	do := func(ip, email string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"`+email+`"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = ip + ":4000"
		r.ServeHTTP(w, req)
		return w
	}

	w := do("10.0.0.1", "a@x.com")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a@x.com", "body must reach the handler")

	// rotating emails from one address stays limited
	for i := 0; i < 20; i++ {
		email := "user" + strconv.Itoa(i) + "@x.com"
		assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1", email).Code, email)
	}

	// the same email from another address is limited too
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.2", "A@x.com").Code)

	// a fresh address with a fresh email passes
	assert.Equal(t, http.StatusOK, do("10.0.0.3", "c@x.com").Code)
}

func TestAuthRequired(t *testing.T) {
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour, false)
	store := storage.NewMemoryStore()
	u := &models.User{Name: "A", Email: "a@x.com"}
	require.NoError(t, store.CreateUser(context.Background(), u))

	r := gin.New()
	r.Use(RequestID(), Session(sessions, store))
	r.POST("/login", func(c *gin.Context) {
		require.NoError(t, sessions.Start(c, u.ID))
		c.Status(http.StatusNoContent)
	})
	r.GET("/private", AuthRequired(), func(c *gin.Context) {
		cu, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"id": cu.ID})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"code":40101,"message":"Not authenticated"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(cookies[0])
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1}`, w.Body.String())
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal error")
}
