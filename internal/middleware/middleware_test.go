package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/courtside-scheduler/internal/models"
	appErrors "github.com/noah-isme/courtside-scheduler/pkg/errors"
)

type staticVerifier map[string]*models.JWTClaims

func (v staticVerifier) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	verifier := staticVerifier{
		"organizer": {UserID: "u1", Role: models.RoleOrganizer},
		"staff":     {UserID: "u2", Role: models.RoleStaff},
	}
	r := gin.New()
	r.GET("/write", JWT(verifier), RequireRoles(models.RoleOrganizer, models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestJWTAndRoles(t *testing.T) {
	r := newProtectedRouter()
	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token organizer", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"staff is read-only", "Bearer staff", http.StatusForbidden},
		{"organizer", "Bearer organizer", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/write", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}
