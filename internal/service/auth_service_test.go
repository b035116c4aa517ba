package service

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkspot/internal/db"
	apperrors "parkspot/internal/errors"
)

type fakeUserRepo struct {
	users  map[string]db.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]db.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, email, phone, passwordHash string) (*db.User, error) {
	if _, ok := f.users[email]; ok {
		return nil, apperrors.ErrEmailTaken
	}
	f.nextID++
	user := db.User{ID: f.nextID, Email: email, Phone: phone, PasswordHash: passwordHash}
	f.users[email] = user
	return &user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*db.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (*db.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return &user, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func TestRegisterAndLogin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	user, err := svc.Register(ctx, "driver@example.com", "+391234567890", "s3cret-password")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "s3cret-password", user.PasswordHash)

	token, err := svc.Login(ctx, "driver@example.com", "s3cret-password")
	require.NoError(t, err)

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(user.ID), claims["user_id"])
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, "driver@example.com", "", "s3cret-password")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "driver@example.com", "wrong")
	assert.Error(t, err)

	_, err = svc.Login(ctx, "unknown@example.com", "s3cret-password")
	assert.Error(t, err)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "", "s3cret-password")
	var ve *apperrors.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = svc.Register(ctx, "driver@example.com", "", "short")
	assert.ErrorAs(t, err, &ve)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, "driver@example.com", "", "s3cret-password")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "driver@example.com", "", "another-password")
	assert.ErrorIs(t, err, apperrors.ErrEmailTaken)
}
