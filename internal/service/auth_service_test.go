package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/evalio/evalio-api/internal/models"
	appErrors "github.com/evalio/evalio-api/pkg/errors"
)

type mockUserRepo struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
	created []models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byEmail: make(map[string]*models.User), byID: make(map[string]*models.User)}
}

func (m *mockUserRepo) add(user *models.User) {
	m.byEmail[user.Email] = user
	m.byID[user.ID] = user
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.byEmail[email]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.byID[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "generated"
	}
	cp := *user
	m.created = append(m.created, cp)
	m.add(&cp)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{TokenSecret: "test-secret", TokenExpiry: time.Hour, Issuer: "evalio-test"}
}

func newAuthService(repo *mockUserRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newMockUserRepo()
	schoolID := "school-1"
	repo.add(&models.User{
		ID:           "user-1",
		Email:        "director@example.com",
		PasswordHash: hashPassword(t, "correct horse"),
		Role:         models.RoleDirector,
		SchoolID:     &schoolID,
	})
	service := newAuthService(repo)

	resp, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "director@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, models.RoleDirector, resp.User.Role)

	claims, err := service.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	require.NotNil(t, claims.SchoolID)
	assert.Equal(t, "school-1", *claims.SchoolID)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{
		ID:           "user-1",
		Email:        "director@example.com",
		PasswordHash: hashPassword(t, "correct horse"),
		Role:         models.RoleDirector,
	})
	service := newAuthService(repo)

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "director@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	service := newAuthService(newMockUserRepo())

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterDirectorRequiresSchool(t *testing.T) {
	service := newAuthService(newMockUserRepo())

	_, err := service.RegisterDirector(context.Background(), models.RegisterRequest{
		Email:     "director@example.com",
		Password:  "long enough password",
		FirstName: "Jana",
		LastName:  "Novak",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterAdminIgnoresSchool(t *testing.T) {
	repo := newMockUserRepo()
	service := newAuthService(repo)

	schoolID := "2f1e0a4c-4a32-4f3c-8f29-3a5f0d2b9c11"
	info, err := service.RegisterAdmin(context.Background(), models.RegisterRequest{
		Email:     "admin@example.com",
		Password:  "long enough password",
		FirstName: "Admin",
		LastName:  "One",
		SchoolID:  &schoolID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, info.Role)
	assert.Nil(t, info.SchoolID)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{ID: "user-1", Email: "admin@example.com"})
	service := newAuthService(repo)

	_, err := service.RegisterAdmin(context.Background(), models.RegisterRequest{
		Email:     "admin@example.com",
		Password:  "long enough password",
		FirstName: "Admin",
		LastName:  "Two",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	service := newAuthService(newMockUserRepo())

	_, err := service.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
