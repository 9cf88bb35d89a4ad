package models

import "time"

// Run is one pass over an image directory.
type Run struct {
	ID         string `gorm:"primaryKey;size:36"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	StartedAt  time.Time `gorm:"not null"`
	FinishedAt time.Time
	SourceDir  string `gorm:"size:512"`
	Groups     int
	Incomplete int
	Skipped    int
	Records    int
}
