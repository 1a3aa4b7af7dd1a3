package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/dental-admin/internal/model"
	"github.com/jwalitptl/dental-admin/pkg/auth"
)

type fakeSession struct {
	account *model.Account
}

func (f *fakeSession) Current() (*model.Account, bool) {
	if f.account == nil {
		return nil, false
	}
	out := *f.account
	return &out, true
}

func newEngine(m *AuthMiddleware, roles ...model.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", m.Authenticate(), m.RequireRole(roles...), func(c *gin.Context) {
		account, _ := CurrentAccount(c)
		c.String(http.StatusOK, account.ID)
	})
	return r
}

func get(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewJWTService("secret", time.Hour)
	admin := &model.Account{ID: "1", Role: model.RoleAdmin, Email: "admin@entnt.in"}
	patient := &model.Account{ID: "2", Role: model.RolePatient, Email: "john@entnt.in", PatientID: "p1"}

	adminToken, err := tokens.GenerateAccessToken(admin)
	require.NoError(t, err)
	patientToken, err := tokens.GenerateAccessToken(patient)
	require.NoError(t, err)

	session := &fakeSession{account: admin}
	r := newEngine(NewAuthMiddleware(tokens, session), model.RoleAdmin)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"token of another account", "Bearer " + patientToken, http.StatusUnauthorized},
		{"active session", "Bearer " + adminToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(r, tt.header)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	session.account = nil
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+adminToken).Code)
}

func TestAuthenticate_ForeignSecret(t *testing.T) {
	account := &model.Account{ID: "1", Role: model.RoleAdmin}
	forged, err := auth.NewJWTService("other", time.Hour).GenerateAccessToken(account)
	require.NoError(t, err)

	r := newEngine(NewAuthMiddleware(auth.NewJWTService("secret", time.Hour), &fakeSession{account: account}), model.RoleAdmin)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+forged).Code)
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewJWTService("secret", time.Hour)
	patient := &model.Account{ID: "2", Role: model.RolePatient, PatientID: "p1"}
	token, err := tokens.GenerateAccessToken(patient)
	require.NoError(t, err)
	m := NewAuthMiddleware(tokens, &fakeSession{account: patient})

	assert.Equal(t, http.StatusForbidden, get(newEngine(m, model.RoleAdmin), "Bearer "+token).Code)

	rec := get(newEngine(m, model.RoleAdmin, model.RolePatient), "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Body.String())
}

func TestSizeLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SizeLimit(10))
	r.POST("/upload", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	small := httptest.NewRequest(http.MethodPost, "/upload", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, small)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	big := httptest.NewRequest(http.MethodPost, "/upload", nil)
	big.ContentLength = 10 + multipartOverhead + 1
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRateLimit_PerAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate.Every(time.Hour), Burst: 2})
	r := gin.New()
	r.GET("/private", func(c *gin.Context) {
		c.Set(ContextAccount, &model.Account{ID: c.Query("as")})
	}, rl.RateLimit(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	call := func(id string) int {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private?as="+id, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, call("1"))
	assert.Equal(t, http.StatusNoContent, call("1"))
	assert.Equal(t, http.StatusTooManyRequests, call("1"))
	assert.Equal(t, http.StatusNoContent, call("2"))
}

func TestRateLimit_ZeroRateDisables(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(RateLimiterConfig{})
	r := gin.New()
	r.GET("/open", rl.RateLimit(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery(nil))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"internal server error"}`, rec.Body.String())
}
