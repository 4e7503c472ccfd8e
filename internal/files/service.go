package files

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martinreyes/filehub-backend/pkg/db/models"
	apperrors "github.com/martinreyes/filehub-backend/pkg/errors"
	"github.com/martinreyes/filehub-backend/pkg/outbox"
)

const maxFileSizeBytes = 5 << 30

// Service owns file record mutations.
type Service struct {
	factory *outbox.Factory
	read    *gorm.DB
}

// NewService wires the file service.
func NewService(factory *outbox.Factory, read *gorm.DB) (*Service, error) {
	if factory == nil {
		return nil, fmt.Errorf("unit of work factory required")
	}
	if read == nil {
		return nil, fmt.Errorf("read handle required")
	}
	return &Service{factory: factory, read: read}, nil
}

// Upload records file metadata and emits file_uploaded through the outbox.
func (s *Service) Upload(ctx context.Context, ownerID uuid.UUID, name, contentType string, sizeBytes int64) (*File, error) {
	if ownerID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "owner is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "file name is required")
	}
	if sizeBytes < 0 || sizeBytes > maxFileSizeBytes {
		return nil, apperrors.New(apperrors.CodeValidation, "file size out of range")
	}

	file := NewFile(ownerID, name, contentType, sizeBytes)
	err := s.factory.Execute(ctx, func(uow *outbox.UnitOfWork) error {
		if err := uow.Tx().Create(&file.File).Error; err != nil {
			return err
		}
		uow.Track(file)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// Delete soft-deletes the file row and emits file_deleted.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.factory.Execute(ctx, func(uow *outbox.UnitOfWork) error {
		var row models.File
		if err := uow.Tx().First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeNotFound, "file not found")
			}
			return err
		}
		file := FromRow(row)
		if file.DeletedAt != nil {
			return apperrors.New(apperrors.CodeStateConflict, "file already deleted")
		}
		file.MarkDeleted()
		if err := uow.Tx().Model(&models.File{}).
			Where("id = ?", file.ID).
			Updates(map[string]any{
				"deleted_at": file.DeletedAt,
				"updated_at": file.UpdatedAt,
			}).Error; err != nil {
			return err
		}
		uow.Track(file)
		return nil
	})
}

// ListByOwner returns the owner's live files.
func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.File, error) {
	var rows []models.File
	err := s.read.WithContext(ctx).
		Where("owner_id = ? AND deleted_at IS NULL", ownerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
