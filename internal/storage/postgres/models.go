package postgres

import "time"

// CredentialModel maps to the "credentials" table.
type CredentialModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"not null;uniqueIndex"`
	Payload   string `gorm:"not null"` // Opaque service-account JSON, stored verbatim.
	Active    bool   `gorm:"not null;default:false;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CredentialModel) TableName() string { return "credentials" }

// UserCredentialModel maps to the "user_credentials" join table.
// At most one row per user; Assign replaces atomically.
type UserCredentialModel struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	UserID       int64 `gorm:"not null;uniqueIndex"`
	CredentialID int64 `gorm:"not null;index"`
	CreatedAt    time.Time
}

func (UserCredentialModel) TableName() string { return "user_credentials" }

// UserModel maps to the "users" table.
type UserModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	Email         string `gorm:"not null;uniqueIndex"`
	PasswordHash  string `gorm:"not null"`
	SpreadsheetID string `gorm:"not null"`
	CreatedAt     time.Time
}

func (UserModel) TableName() string { return "users" }

// NoteLogModel maps to the "note_logs" table.
type NoteLogModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	UserID    int64 `gorm:"not null;index"`
	Note      string
	CreatedAt time.Time
}

func (NoteLogModel) TableName() string { return "note_logs" }
