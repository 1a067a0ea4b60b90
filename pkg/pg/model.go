package pg

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model is the primary key shared by every table. IDs are generated by the
// application so that the same entities work on PostgreSQL and SQLite.
type Model struct {
	ID string `gorm:"primaryKey;type:uuid;column:id"`
}

func (m *Model) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = NewID()
	}
	return nil
}

func NewID() string {
	return uuid.NewString()
}
