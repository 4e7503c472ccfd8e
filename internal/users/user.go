package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/martinreyes/filehub-backend/pkg/db/models"
	"github.com/martinreyes/filehub-backend/pkg/enums"
	"github.com/martinreyes/filehub-backend/pkg/events"
)

// User wraps the account row with event recording. Mutations go through the
// aggregate so every state change leaves a matching event behind.
type User struct {
	events.Recorder
	models.User
}

// NewUser builds a fresh account and records its creation event.
func NewUser(email, displayName string) *User {
	now := time.Now().UTC()
	user := &User{
		User: models.User{
			ID:          uuid.New(),
			Email:       email,
			DisplayName: displayName,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	user.Record(UserCreatedEvent{
		Base:        events.NewBase(),
		UserID:      user.ID,
		Email:       email,
		DisplayName: displayName,
	})
	return user
}

// FromRow rehydrates an aggregate from a persisted row without recording
// anything.
func FromRow(row models.User) *User {
	return &User{User: row}
}

func (u *User) AggregateID() uuid.UUID { return u.ID }

func (u *User) AggregateType() enums.OutboxAggregateType { return enums.AggregateUser }

// UpdateProfile changes the display name and records the update.
func (u *User) UpdateProfile(displayName string) {
	u.DisplayName = displayName
	u.UpdatedAt = time.Now().UTC()
	u.Record(UserProfileUpdatedEvent{
		Base:        events.NewBase(),
		UserID:      u.ID,
		DisplayName: displayName,
	})
}

// Deactivate disables the account. Deactivating twice records one event.
func (u *User) Deactivate() {
	if !u.Active {
		return
	}
	u.Active = false
	u.UpdatedAt = time.Now().UTC()
	u.Record(UserDeactivatedEvent{
		Base:   events.NewBase(),
		UserID: u.ID,
	})
}

// RecordLogin notes a successful login with a fire-and-forget event.
func (u *User) RecordLogin() {
	u.Record(UserLoggedInEvent{
		Base:   events.NewBase(),
		UserID: u.ID,
	})
}
