package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/evalio/evalio-api/internal/models"
	"github.com/evalio/evalio-api/internal/service"
	"github.com/evalio/evalio-api/pkg/response"
)

type staticUserRepo struct {
	user *models.User
}

func (r *staticUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if r.user != nil && r.user.Email == email {
		cp := *r.user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (r *staticUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if r.user != nil && r.user.ID == id {
		cp := *r.user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (r *staticUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.user != nil && r.user.Email == email, nil
}

func (r *staticUserRepo) Create(ctx context.Context, user *models.User) error { return nil }

func testRouter(t *testing.T) (*gin.Engine, *service.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.MinCost)
	require.NoError(t, err)
	schoolID := "school-1"
	user := &models.User{
		ID:           "user-1",
		Email:        "director@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleDirector,
		SchoolID:     &schoolID,
	}

	auth := service.NewAuthService(&staticUserRepo{user: user}, nil, zap.NewNop(), service.AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "evalio-test",
	})

	r := gin.New()
	protected := r.Group("", JWT(auth))
	protected.GET("/whoami", func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		response.JSON(c, http.StatusOK, claims.UserID, nil)
	})
	protected.GET("/admin-only", RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, auth
}

func issueToken(t *testing.T, auth *service.AuthService) string {
	t.Helper()
	resp, err := auth.Login(context.Background(), models.LoginRequest{
		Email:    "director@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)
	return resp.AccessToken
}

func TestJWTMiddlewareAllowsValidToken(t *testing.T) {
	r, auth := testRouter(t)
	token := issueToken(t, auth)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user-1")
}

func TestJWTMiddlewareRejectsMissingHeader(t *testing.T) {
	r, _ := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareRejectsMalformedHeader(t *testing.T) {
	r, auth := testRouter(t)
	token := issueToken(t, auth)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", token)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRolesBlocksWrongRole(t *testing.T) {
	r, auth := testRouter(t)
	token := issueToken(t, auth)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
