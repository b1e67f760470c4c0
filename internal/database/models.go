package database

import "time"

// SavedHost is a named SSH connection profile. Password is stored
// fernet-encrypted; the settings layer encrypts before write and decrypts
// after read.
type SavedHost struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Host      string    `gorm:"not null" json:"host"`
	Port      int       `gorm:"not null;default:22" json:"port"`
	Username  string    `gorm:"not null" json:"username"`
	Password  string    `json:"password"`
	KeyFile   string    `json:"key_file"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
