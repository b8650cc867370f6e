// Package auth handles credential verification and session lifecycle.
package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/codesagecoder/digital-marketplace/internal/shared"
	"github.com/codesagecoder/digital-marketplace/internal/users"
)

// UserDirectory resolves accounts by email.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*users.User, error)
}

// SessionAudit persists session metadata for auditing.
type SessionAudit interface {
	CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// Service wraps authentication business rules.
type Service struct {
	directory UserDirectory
	audit     SessionAudit
}

// NewService constructs a Service.
func NewService(directory UserDirectory, audit SessionAudit) *Service {
	return &Service{directory: directory, audit: audit}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*users.User, error) {
	user, err := s.directory.GetByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	return s.audit.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.audit.DeleteSession(ctx, id)
}
