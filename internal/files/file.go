package files

import (
	"time"

	"github.com/google/uuid"

	"github.com/martinreyes/filehub-backend/pkg/db/models"
	"github.com/martinreyes/filehub-backend/pkg/enums"
	"github.com/martinreyes/filehub-backend/pkg/events"
)

// File wraps the stored file row with event recording.
type File struct {
	events.Recorder
	models.File
}

// NewFile builds a file record and records the upload event.
func NewFile(ownerID uuid.UUID, name, contentType string, sizeBytes int64) *File {
	now := time.Now().UTC()
	file := &File{
		File: models.File{
			ID:          uuid.New(),
			OwnerID:     ownerID,
			Name:        name,
			ContentType: contentType,
			SizeBytes:   sizeBytes,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	file.Record(FileUploadedEvent{
		Base:        events.NewBase(),
		FileID:      file.ID,
		OwnerID:     ownerID,
		Name:        name,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
	})
	return file
}

// FromRow rehydrates an aggregate from a persisted row.
func FromRow(row models.File) *File {
	return &File{File: row}
}

func (f *File) AggregateID() uuid.UUID { return f.ID }

func (f *File) AggregateType() enums.OutboxAggregateType { return enums.AggregateFile }

// MarkDeleted soft-deletes the file and records the deletion event.
func (f *File) MarkDeleted() {
	if f.DeletedAt != nil {
		return
	}
	now := time.Now().UTC()
	f.DeletedAt = &now
	f.UpdatedAt = now
	f.Record(FileDeletedEvent{
		Base:    events.NewBase(),
		FileID:  f.ID,
		OwnerID: f.OwnerID,
	})
}
