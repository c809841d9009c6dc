package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/backend/internal/domain"
	"taskboard/backend/internal/storage/memory"
)

func TestRegister(t *testing.T) {
	svc := NewService(memory.NewStore())

	user, err := svc.Register(RegisterInput{
		Email:    "Client@Example.COM",
		Username: "client",
		Password: "Password123!",
	})
	require.NoError(t, err)
	assert.Equal(t, "client@example.com", user.Email, "email is normalized to lower case")
	assert.Equal(t, domain.RoleClient, user.Role, "default role is client")
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "Password123!", user.PasswordHash)

	admin, err := svc.Register(RegisterInput{
		Email:    "admin@example.com",
		Username: "admin",
		Password: "Password123!",
		Role:     domain.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(memory.NewStore())

	_, err := svc.Register(RegisterInput{Email: "not-an-email", Username: "a", Password: "Password123!"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register(RegisterInput{Email: "a@example.com", Username: "a", Password: "short"})
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Register(RegisterInput{Email: "a@example.com", Username: "alpha", Password: "Password123!"})
	require.NoError(t, err)

	_, err = svc.Register(RegisterInput{Email: "a@example.com", Username: "beta", Password: "Password123!"})
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = svc.Register(RegisterInput{Email: "b@example.com", Username: "alpha", Password: "Password123!"})
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestLogin(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store)

	registered, err := svc.Register(RegisterInput{
		Email:    "client@example.com",
		Username: "client",
		Password: "Password123!",
	})
	require.NoError(t, err)

	// 邮箱登录
	user, err := svc.Login(LoginInput{Identifier: "client@example.com", Password: "Password123!"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	// 用户名登录
	user, err = svc.Login(LoginInput{Identifier: "client", Password: "Password123!"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	// 登录时间被记录
	fresh, err := store.GetUserByID(registered.ID)
	require.NoError(t, err)
	assert.NotNil(t, fresh.LastLoginAt)

	_, err = svc.Login(LoginInput{Identifier: "client", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(LoginInput{Identifier: "ghost", Password: "Password123!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store)

	user, err := svc.Register(RegisterInput{
		Email:    "client@example.com",
		Username: "client",
		Password: "Password123!",
	})
	require.NoError(t, err)

	user.IsActive = false
	require.NoError(t, store.UpdateUser(user))

	_, err = svc.Login(LoginInput{Identifier: "client", Password: "Password123!"})
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Password123!")
	require.NoError(t, err)

	assert.NoError(t, CheckPassword(hash, "Password123!"))
	assert.Error(t, CheckPassword(hash, "Password123?"))
}
