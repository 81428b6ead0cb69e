package course

import "gorm.io/gorm"

// Course levels, ordered from entry level upward. The order matters:
// certificate eligibility starts at the second level.
const (
	LevelBeginner     = "BEGINNER"
	LevelIntermediate = "INTERMEDIATE"
	LevelAdvanced     = "ADVANCED"
	LevelExpert       = "EXPERT"
)

// Levels is the closed, ordered set of valid course levels.
var Levels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert}

// Course represents a learning course
type Course struct {
	gorm.Model
	Title        string `json:"title"`
	Description  string `json:"description"`
	Author       string `json:"author"`
	Level        string `json:"level" gorm:"default:'BEGINNER'"`
	Duration     int64  `json:"duration" gorm:"default:0"`     // duration in hours
	Status       string `json:"status" gorm:"default:'DRAFT'"` // DRAFT, ACTIVE, INACTIVE
	Rating       uint   `json:"rating" gorm:"default:0"`
	ThumbnailURL string `json:"thumbnail_url"`
	IsPublished  bool   `json:"is_published" gorm:"default:false"`
	IsDeleted    bool   `gorm:"default:false"`
}
