package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Wrap(errors.New("bad token"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	return s.claims, s.err
}

func newRouter(v tokenValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWT(v), RequireRoles(roles...), func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.String(http.StatusOK, claims.AccountID)
	})
	return r
}

func serve(r http.Handler, auth string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAndRoles(t *testing.T) {
	teacher := stubValidator{claims: &models.JWTClaims{UserID: "u1", AccountID: "acc-1", Role: models.RoleTeacher}}

	w := serve(newRouter(teacher, models.RoleAdmin, models.RoleTeacher), "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acc-1", w.Body.String())

	w = serve(newRouter(teacher, models.RoleAdmin), "Bearer good")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(newRouter(teacher, models.RoleTeacher), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(newRouter(teacher, models.RoleTeacher), "Token good")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(newRouter(teacher, models.RoleTeacher), "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
