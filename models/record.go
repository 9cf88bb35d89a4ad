package models

import "time"

// Record is one assembled inventory row, unique per run and capture id.
type Record struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	RunID      string  `gorm:"size:36;not null;index;uniqueIndex:idx_run_file"`
	Run        Run     `gorm:"foreignKey:RunID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	FileID     string  `gorm:"size:64;not null;uniqueIndex:idx_run_file"`
	ItemName   string  `gorm:"size:255"`
	ItemType   string  `gorm:"size:128"`
	Rarity     string  `gorm:"size:32;index"`
	TraitName  string  `gorm:"size:255"`
	TitleText  string  `gorm:"type:text"`
	TraitText  string  `gorm:"type:text"`
	ItemScore  float64
	TraitScore float64
}
