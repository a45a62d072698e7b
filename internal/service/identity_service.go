// Package service holds business logic that sits between HTTP handlers
// and the repository/cache layer, following the teacher's layering.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campusbites/orderline/internal/store"
	"github.com/campusbites/orderline/pkg/hasher"
	"github.com/campusbites/orderline/pkg/token"
)

var (
	// ErrInvalidCredentials covers both unknown student_id and wrong password,
	// the Identity Provider never distinguishes the two externally.
	ErrInvalidCredentials = errors.New("invalid student id or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrStudentExists      = errors.New("student id or email already registered")
	ErrInvalidRefresh     = errors.New("invalid or expired refresh token")
)

// TokenPair is what every successful auth operation returns (spec.md §6:
// "200 {access_token, refresh_token, expires_in}").
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

type RegisterReq struct {
	StudentID string
	Username  string
	Email     string
	Password  string
}

type RegisterResp struct {
	PrincipalID uint64
	StudentID   string
	Username    string
	Email       string
}

type ChangePasswordReq struct {
	PrincipalID     uint64
	CurrentPassword string
	NewPassword     string
}

//go:generate mockgen -source=$GOFILE -destination=../mocks/identity_service_mock.go -package=mocks

// IdentityService implements credential checks and token issuance (spec.md
// §4.J and the register/change-password collaborators SPEC_FULL.md adds).
type IdentityService interface {
	Login(ctx context.Context, studentID, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Register(ctx context.Context, req *RegisterReq) (*RegisterResp, error)
	ChangePassword(ctx context.Context, req *ChangePasswordReq) error
}

type identityService struct {
	users      store.UserRepository
	hasher     hasher.PasswordHasher
	tokenMaker token.Maker
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(users store.UserRepository, h hasher.PasswordHasher, tokenMaker token.Maker, accessTTL, refreshTTL time.Duration) IdentityService {
	return &identityService{users: users, hasher: h, tokenMaker: tokenMaker, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (s *identityService) Login(ctx context.Context, studentID, password string) (*TokenPair, error) {
	user, err := s.users.GetByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up student: %w", err)
	}

	if err := s.hasher.Check(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	return s.issueTokens(user)
}

func (s *identityService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	payload, err := s.tokenMaker.VerifyToken(refreshToken, token.TokenTypeRefresh)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	user, err := s.users.GetByID(ctx, payload.PrincipalID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, fmt.Errorf("failed to look up student: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidRefresh
	}

	return s.issueTokens(user)
}

func (s *identityService) Register(ctx context.Context, req *RegisterReq) (*RegisterResp, error) {
	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("password hashing failed: %w", err)
	}

	user := &store.User{
		StudentID:    req.StudentID,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashed,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			return nil, ErrStudentExists
		}
		return nil, fmt.Errorf("failed to create student record: %w", err)
	}

	return &RegisterResp{
		PrincipalID: user.ID,
		StudentID:   user.StudentID,
		Username:    user.Username,
		Email:       user.Email,
	}, nil
}

func (s *identityService) ChangePassword(ctx context.Context, req *ChangePasswordReq) error {
	user, err := s.users.GetByID(ctx, req.PrincipalID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("failed to look up student: %w", err)
	}

	if err := s.hasher.Check(req.CurrentPassword, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}
	if !user.IsActive {
		return ErrAccountDisabled
	}

	hashed, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("password hashing failed: %w", err)
	}
	user.PasswordHash = hashed
	return s.users.UpdatePasswordHash(ctx, user.ID, hashed)
}

func (s *identityService) issueTokens(user *store.User) (*TokenPair, error) {
	access, _, err := s.tokenMaker.CreateAccessToken(user.ID, user.Username, user.IsAdmin, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	refresh, _, err := s.tokenMaker.CreateRefreshToken(user.ID, user.Username, user.IsAdmin, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}
