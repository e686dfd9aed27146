package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/ledger-api/internal/models"
	appErrors "github.com/tutorbase/ledger-api/pkg/errors"
)

type mockUserRepo struct {
	byEmail map[string]*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byEmail: map[string]*models.User{}}
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	copied := *user
	m.byEmail[user.Email] = &copied
	return nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, user := range m.byEmail {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *mockUserRepo) ExistsByAddress(ctx context.Context, address string) (bool, error) {
	for _, user := range m.byEmail {
		if user.Address == address {
			return true, nil
		}
	}
	return false, nil
}

func newAuthForTest(repo authUserRepository) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "ledger-api-test",
	})
}

func TestAuthRegisterAndLogin(t *testing.T) {
	repo := newMockUserRepo()
	svc := newAuthForTest(repo)

	user, err := svc.Register(context.Background(), models.RegisterAccountRequest{
		Email:    "Alice@Example.com",
		Password: "s3cret-pass",
		FullName: "Alice",
		Address:  "0xabc",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "0xabc", resp.Account.Address)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "0xabc", claims.Address)
}

func TestAuthRegisterDuplicateEmailOrAddress(t *testing.T) {
	repo := newMockUserRepo()
	svc := newAuthForTest(repo)

	base := models.RegisterAccountRequest{Email: "alice@example.com", Password: "s3cret-pass", FullName: "Alice", Address: "0xabc"}
	_, err := svc.Register(context.Background(), base)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), base)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	dup := base
	dup.Email = "bob@example.com"
	_, err = svc.Register(context.Background(), dup)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	repo := newMockUserRepo()
	svc := newAuthForTest(repo)

	_, err := svc.Register(context.Background(), models.RegisterAccountRequest{Email: "alice@example.com", Password: "s3cret-pass", FullName: "Alice", Address: "0xabc"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "wrong-pass"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	repo := newMockUserRepo()
	svc := newAuthForTest(repo)

	_, err := svc.Register(context.Background(), models.RegisterAccountRequest{Email: "alice@example.com", Password: "s3cret-pass", FullName: "Alice", Address: "0xabc"})
	require.NoError(t, err)
	repo.byEmail["alice@example.com"].Active = false

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "s3cret-pass"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	repo := newMockUserRepo()
	svc := newAuthForTest(repo)

	_, err := svc.Register(context.Background(), models.RegisterAccountRequest{Email: "alice@example.com", Password: "s3cret-pass", FullName: "Alice", Address: "0xabc"})
	require.NoError(t, err)
	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken + "x")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)

	other := NewAuthService(repo, nil, nil, AuthConfig{Secret: "other-secret", Expiration: time.Hour, Issuer: "ledger-api-test"})
	_, err = other.ValidateToken(resp.AccessToken)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
