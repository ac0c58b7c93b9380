package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ecofood/internal/auth"
	"ecofood/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, handlers ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", handlers...)
	return r
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewTokenIssuer("secret", time.Hour)
	guard := NewGuard(tokens)
	companyID := uuid.New()

	var seen service.Actor
	r := newRouter(t, guard.RequireRole("company", "admin"), func(c *gin.Context) {
		seen, _ = ActorFrom(c)
		c.Status(http.StatusOK)
	})

	companyToken, _, err := tokens.Issue(companyID, "company")
	require.NoError(t, err)
	customerToken, _, err := tokens.Issue(uuid.New(), "customer")
	require.NoError(t, err)
	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Role: "company",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-an-account",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"malformed header", "Token " + companyToken, "", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", "", http.StatusUnauthorized},
		{"wrong role", "Bearer " + customerToken, "", http.StatusForbidden},
		{"non-account subject", "Bearer " + badSubject, "", http.StatusUnauthorized},
		{"bearer", "Bearer " + companyToken, "", http.StatusOK},
		{"cookie", "", companyToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tc.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
	assert.Equal(t, service.Actor{ID: companyID, Role: "company"}, seen)
}

func TestRateLimit(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	limit, err := RateLimit("2-M", log)
	require.NoError(t, err)

	r := newRouter(t, limit, func(c *gin.Context) { c.Status(http.StatusOK) })
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	_, err = RateLimit("lots", log)
	assert.Error(t, err)
}

func TestRequestLoggerAssignsRequestID(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := newRouter(t, RequestLogger(log), func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	id := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, id)
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, id, hook.LastEntry().Data["request_id"])
	assert.Equal(t, http.StatusNotFound, hook.LastEntry().Data["status"])
}
