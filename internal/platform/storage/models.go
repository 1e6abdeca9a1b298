package storage

import (
	"time"

	"gorm.io/datatypes"
)

// User is an account that owns projects, chat sessions and stored
// provider credentials.
type User struct {
	ID        uint      `gorm:"primaryKey"                             json:"id"`
	Username  string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex"          json:"email"`
	Password  string    `                                              json:"-"` // bcrypt hash, never serialized
	Role      string    `gorm:"default:'user'"                         json:"role"`
	Status    uint      `gorm:"default:1"                              json:"status"` // 1=active, 0=disabled
	CreatedAt time.Time `                                              json:"createdAt"`
	UpdatedAt time.Time `                                              json:"updatedAt"`
}

// Credential holds one encrypted provider API key. Blob is the vault's
// base64(salt || iv || ciphertext) output; KeyCreatedAt is stored in the
// clear and only drives rotation-age advisories.
type Credential struct {
	ID           uint      `gorm:"primaryKey"                       json:"id"`
	UserID       uint      `gorm:"index;uniqueIndex:idx_user_provider;not null" json:"-"`
	Provider     string    `gorm:"type:varchar(64);uniqueIndex:idx_user_provider;not null" json:"provider"`
	Blob         string    `gorm:"type:text;not null"               json:"-"`
	KeyCreatedAt time.Time `                                        json:"keyCreatedAt"`
	CreatedAt    time.Time `                                        json:"createdAt"`
	UpdatedAt    time.Time `                                        json:"updatedAt"`
}

// Project groups the uploaded source files a user wants to ask about.
type Project struct {
	ID          uint         `gorm:"primaryKey"         json:"id"`
	UserID      uint         `gorm:"index;not null"     json:"-"`
	Name        string       `gorm:"not null"           json:"name"`
	Description string       `gorm:"type:text"          json:"description"`
	CreatedAt   time.Time    `                          json:"createdAt"`
	UpdatedAt   time.Time    `                          json:"updatedAt"`
	Files       []SourceFile `gorm:"foreignKey:ProjectID" json:"files,omitempty"`
}

// SourceFile is a single uploaded file. Content lives in the database;
// uploads are size-capped so rows stay small.
type SourceFile struct {
	ID        uint      `gorm:"primaryKey"     json:"id"`
	ProjectID uint      `gorm:"index;not null" json:"-"`
	Name      string    `gorm:"not null"       json:"name"`
	Language  string    `gorm:"type:varchar(32)" json:"language"`
	Size      int64     `                      json:"size"`
	Content   string    `gorm:"type:text"      json:"-"`
	CreatedAt time.Time `                      json:"createdAt"`
}

// ChatSession is one conversation over a project. Dialog is the full
// message history as a JSON array.
type ChatSession struct {
	ID        string         `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID    uint           `gorm:"index;not null"              json:"-"`
	ProjectID uint           `gorm:"index"                       json:"projectId"`
	Title     string         `                                   json:"title"`
	Dialog    datatypes.JSON `gorm:"type:text"                   json:"dialog,omitempty"`
	CreatedAt time.Time      `                                   json:"createdAt"`
	UpdatedAt time.Time      `                                   json:"updatedAt"`
}

// FailedLogin backs the sqlite failure-store driver. One row per failed
// attempt; rows outside the lockout window are pruned lazily.
type FailedLogin struct {
	ID          uint      `gorm:"primaryKey"`
	Identifier  string    `gorm:"type:varchar(255);index;not null"`
	AttemptedAt time.Time `gorm:"index"`
}
