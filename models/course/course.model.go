package course

import "gorm.io/gorm"

// Course represents a course learners can be examined on
type Course struct {
	gorm.Model
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category" gorm:"default:'TOEIC'"` // TOEIC, TINHOC
	Status      string `json:"status" gorm:"default:'DRAFT'"`   // DRAFT, ACTIVE, INACTIVE
	IsPublished bool   `json:"is_published" gorm:"default:false"`
	IsDeleted   bool   `gorm:"default:false"`
}
