package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusops/school-ops-api/internal/models"
	appErrors "github.com/campusops/school-ops-api/pkg/errors"
)

type authUserRepoStub struct {
	user            *models.User
	lastLoginUpdate *time.Time
}

func (s *authUserRepoStub) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *authUserRepoStub) FindByID(_ context.Context, id string) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *authUserRepoStub) UpdateLastLogin(_ context.Context, _ string, ts time.Time) error {
	s.lastLoginUpdate = &ts
	return nil
}

func newAuthFixture(t *testing.T, user *models.User) (*AuthService, *authUserRepoStub) {
	t.Helper()
	repo := &authUserRepoStub{user: user}
	svc := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "school-ops-test",
	})
	return svc, repo
}

func activeUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		SchoolID:     "school-1",
		Email:        "admin@school.test",
		PasswordHash: string(hash),
		FullName:     "Admin",
		Role:         models.RoleAdmin,
		Active:       true,
	}
}

func TestAuthLoginIssuesValidToken(t *testing.T) {
	svc, repo := newAuthFixture(t, activeUser(t, "s3cret"))

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@school.test",
		Password: "s3cret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.NotNil(t, repo.lastLoginUpdate)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "school-1", claims.SchoolID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "school-ops-test", claims.Issuer)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t, activeUser(t, "s3cret"))

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@school.test",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t, activeUser(t, "s3cret"))

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@school.test",
		Password: "s3cret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	user := activeUser(t, "s3cret")
	user.Active = false
	svc, _ := newAuthFixture(t, user)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@school.test",
		Password: "s3cret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t, nil)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer, _ := newAuthFixture(t, activeUser(t, "s3cret"))
	resp, err := issuer.Login(context.Background(), models.LoginRequest{
		Email:    "admin@school.test",
		Password: "s3cret",
	})
	require.NoError(t, err)

	other := NewAuthService(&authUserRepoStub{}, nil, zap.NewNop(), AuthConfig{TokenSecret: "different"})
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
