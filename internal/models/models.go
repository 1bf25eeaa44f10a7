package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdministrator = "Administrator"
	RoleUser          = "User"
)

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName    string     `gorm:"size:100;not null" json:"firstName"`
	LastName     string     `gorm:"size:100;not null" json:"lastName"`
	CPF          string     `gorm:"column:cpf;size:11;uniqueIndex;not null" json:"cpf"`
	Email        string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone        string     `gorm:"size:20" json:"phone"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Role         string     `gorm:"size:32;not null;default:User" json:"role"`
	IsActive     bool       `gorm:"not null;default:true" json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `gorm:"autoUpdateTime:false" json:"updatedAt,omitempty"`
	Addresses    []Address  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"addresses,omitempty"`
	AuditLogs    []AuditLog `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (u User) FullName() string { return u.FirstName + " " + u.LastName }

type Address struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"userId"`
	Street       string     `gorm:"size:200;not null" json:"street"`
	Number       *string    `gorm:"size:20" json:"number,omitempty"`
	Neighborhood *string    `gorm:"size:100" json:"neighborhood,omitempty"`
	Complement   *string    `gorm:"size:100" json:"complement,omitempty"`
	City         string     `gorm:"size:100;not null" json:"city"`
	State        string     `gorm:"size:2;not null" json:"state"`
	ZipCode      string     `gorm:"size:10;not null" json:"zipCode"`
	Country      string     `gorm:"size:60;not null" json:"country"`
	IsPrimary    bool       `gorm:"not null;default:false" json:"isPrimary"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `gorm:"autoUpdateTime:false" json:"updatedAt,omitempty"`
}

// AuditLog is one field-level change. UserID is the user whose data changed and
// becomes NULL when that user is permanently deleted; ChangedBy is the actor.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"userId,omitempty"`
	EntityType string     `gorm:"size:50;not null;index:idx_audit_entity" json:"entityType"`
	EntityID   string     `gorm:"size:64;not null;index:idx_audit_entity" json:"entityId"`
	FieldName  string     `gorm:"size:100;not null;index" json:"fieldName"`
	OldValue   *string    `gorm:"type:text" json:"oldValue"`
	NewValue   *string    `gorm:"type:text" json:"newValue"`
	ChangedAt  time.Time  `gorm:"not null;index" json:"changedAt"`
	ChangedBy  uuid.UUID  `gorm:"type:uuid;not null" json:"changedBy"`
	IPAddress  *string    `gorm:"size:45" json:"ipAddress,omitempty"`
	UserAgent  *string    `gorm:"size:500" json:"userAgent,omitempty"`
}
