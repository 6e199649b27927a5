package models

import "time"

// Profile is a user's contact record, unique by email.
type Profile struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	Email     string  `gorm:"uniqueIndex;size:320;not null"`
	Name      string  `gorm:"size:255;not null"`
	Phone     *string `gorm:"size:64"`
	Age       *int
	CreatedAt time.Time
	UpdatedAt time.Time
}
