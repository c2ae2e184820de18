package models

import (
	"time"

	"github.com/google/uuid"
)

// Lead is a contact/prospect scoped to a clinic and placed on a kanban stage.
type Lead struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ClinicID  uuid.UUID  `gorm:"column:clinic_id;type:uuid;not null"`
	StageID   *uuid.UUID `gorm:"column:stage_id;type:uuid"`
	Name      *string    `gorm:"column:name"`
	Phone     *string    `gorm:"column:phone"`
	Email     *string    `gorm:"column:email"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Stage is a kanban pipeline column owned by a clinic.
type Stage struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ClinicID  uuid.UUID `gorm:"column:clinic_id;type:uuid;not null"`
	Name      string    `gorm:"column:name;not null"`
	Position  int       `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
