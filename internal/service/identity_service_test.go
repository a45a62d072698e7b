package service

import (
	"context"
	"testing"
	"time"

	"github.com/campusbites/orderline/internal/store"
	"github.com/campusbites/orderline/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	byStudentID map[string]*store.User
	byID        map[uint64]*store.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byStudentID: map[string]*store.User{}, byID: map[uint64]*store.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *store.User) error {
	if _, ok := r.byStudentID[user.StudentID]; ok {
		return store.ErrUserAlreadyExists
	}
	user.ID = uint64(len(r.byID) + 1)
	r.byStudentID[user.StudentID] = user
	r.byID[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByStudentID(ctx context.Context, studentID string) (*store.User, error) {
	user, ok := r.byStudentID[studentID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uint64) (*store.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) UpdatePasswordHash(ctx context.Context, id uint64, passwordHash string) error {
	user, ok := r.byID[id]
	if !ok {
		return store.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

type bcryptHasher struct{}

func (bcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(b), err
}
func (bcryptHasher) Check(password, hashedPassword string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func seededUser(t *testing.T, repo *fakeUserRepo, studentID, password string, active bool) *store.User {
	t.Helper()
	hashed, err := (bcryptHasher{}).Hash(password)
	require.NoError(t, err)
	user := &store.User{StudentID: studentID, Username: studentID, Email: studentID + "@school.edu", PasswordHash: hashed, IsActive: active}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func newTestService(t *testing.T) (IdentityService, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo()
	maker, err := token.NewJWTMaker("01234567890123456789012345678901")
	require.NoError(t, err)
	svc := NewIdentityService(repo, bcryptHasher{}, maker, 30*time.Minute, 7*24*time.Hour)
	return svc, repo
}

func TestIdentityService_Login_Success(t *testing.T) {
	svc, repo := newTestService(t)
	seededUser(t, repo, "s-1", "correcthorse", true)

	pair, err := svc.Login(context.Background(), "s-1", "correcthorse")

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(1800), pair.ExpiresIn)
}

func TestIdentityService_Login_WrongPassword(t *testing.T) {
	svc, repo := newTestService(t)
	seededUser(t, repo, "s-1", "correcthorse", true)

	_, err := svc.Login(context.Background(), "s-1", "wrong")

	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIdentityService_Login_UnknownStudent(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login(context.Background(), "ghost", "whatever")

	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIdentityService_Login_DisabledAccount(t *testing.T) {
	svc, repo := newTestService(t)
	seededUser(t, repo, "s-1", "correcthorse", false)

	_, err := svc.Login(context.Background(), "s-1", "correcthorse")

	require.ErrorIs(t, err, ErrAccountDisabled)
}

func TestIdentityService_Refresh_RejectsAccessToken(t *testing.T) {
	svc, repo := newTestService(t)
	seededUser(t, repo, "s-1", "correcthorse", true)

	pair, err := svc.Login(context.Background(), "s-1", "correcthorse")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestIdentityService_Refresh_Success(t *testing.T) {
	svc, repo := newTestService(t)
	seededUser(t, repo, "s-1", "correcthorse", true)

	pair, err := svc.Login(context.Background(), "s-1", "correcthorse")
	require.NoError(t, err)

	rotated, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)
}

func TestIdentityService_Register_DuplicateStudentID(t *testing.T) {
	svc, repo := newTestService(t)
	seededUser(t, repo, "s-1", "correcthorse", true)

	_, err := svc.Register(context.Background(), &RegisterReq{StudentID: "s-1", Username: "dup", Email: "dup@school.edu", Password: "x"})

	require.ErrorIs(t, err, ErrStudentExists)
}

func TestIdentityService_ChangePassword_ThenLoginWithNewPassword(t *testing.T) {
	svc, repo := newTestService(t)
	user := seededUser(t, repo, "s-1", "correcthorse", true)

	err := svc.ChangePassword(context.Background(), &ChangePasswordReq{PrincipalID: user.ID, CurrentPassword: "correcthorse", NewPassword: "newpass"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "s-1", "correcthorse")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "s-1", "newpass")
	require.NoError(t, err)
}
