package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martinreyes/filehub-backend/pkg/db"
	apperrors "github.com/martinreyes/filehub-backend/pkg/errors"
	"github.com/martinreyes/filehub-backend/pkg/outbox"
)

// Service owns user account mutations. Every write runs in a unit of work so
// the row and its events commit or vanish together.
type Service struct {
	factory *outbox.Factory
	repo    *Repository
	read    *gorm.DB
}

// NewService wires the user service.
func NewService(factory *outbox.Factory, repo *Repository, read *gorm.DB) (*Service, error) {
	if factory == nil {
		return nil, fmt.Errorf("unit of work factory required")
	}
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if read == nil {
		return nil, fmt.Errorf("read handle required")
	}
	return &Service{factory: factory, repo: repo, read: read}, nil
}

// Register creates an account and emits user_created through the outbox.
func (s *Service) Register(ctx context.Context, email, displayName string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.New(apperrors.CodeValidation, "a valid email is required")
	}
	if strings.TrimSpace(displayName) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "display name is required")
	}

	user := NewUser(email, displayName)
	err := s.factory.Execute(ctx, func(uow *outbox.UnitOfWork) error {
		if err := s.repo.Insert(uow.Tx(), &user.User); err != nil {
			if db.IsUniqueViolation(err, "") {
				return apperrors.New(apperrors.CodeConflict, "email already registered")
			}
			return err
		}
		uow.Track(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile changes the display name and emits user_profile_updated.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, displayName string) (*User, error) {
	if strings.TrimSpace(displayName) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "display name is required")
	}

	var user *User
	err := s.factory.Execute(ctx, func(uow *outbox.UnitOfWork) error {
		row, err := s.repo.FindByID(uow.Tx(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeNotFound, "user not found")
			}
			return err
		}
		user = FromRow(*row)
		user.UpdateProfile(displayName)
		if err := s.repo.Update(uow.Tx(), &user.User); err != nil {
			return err
		}
		uow.Track(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Deactivate disables the account and emits user_deactivated.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.factory.Execute(ctx, func(uow *outbox.UnitOfWork) error {
		row, err := s.repo.FindByID(uow.Tx(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeNotFound, "user not found")
			}
			return err
		}
		user := FromRow(*row)
		if !user.Active {
			return apperrors.New(apperrors.CodeStateConflict, "user already deactivated")
		}
		user.Deactivate()
		if err := s.repo.Update(uow.Tx(), &user.User); err != nil {
			return err
		}
		uow.Track(user)
		return nil
	})
}

// RecordLogin publishes a fire-and-forget login event. No row changes.
func (s *Service) RecordLogin(ctx context.Context, id uuid.UUID) error {
	row, err := s.repo.FindByID(s.read, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "user not found")
		}
		return err
	}
	user := FromRow(*row)
	user.RecordLogin()
	return s.factory.Execute(ctx, func(uow *outbox.UnitOfWork) error {
		uow.Track(user)
		return nil
	})
}

// Get loads a user outside any unit of work.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	row, err := s.repo.FindByID(s.read.WithContext(ctx), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return FromRow(*row), nil
}
