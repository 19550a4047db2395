package model

import (
	"time"

	"gorm.io/gorm"
)

// Cycle цикл анализа кадра в базе данных
type Cycle struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Fallback    bool   `gorm:"not null;default:false" json:"fallback"`
	FrameWidth  int    `gorm:"not null;default:0" json:"frame_width"`
	FrameHeight int    `gorm:"not null;default:0" json:"frame_height"`
	ElapsedMS   int64  `gorm:"not null;default:0" json:"elapsed_ms"`

	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Связь с детекциями
	Detections []DetectionRecord `gorm:"foreignKey:CycleID;constraint:OnDelete:CASCADE" json:"detections"`
}

// DetectionRecord детекция в составе цикла
type DetectionRecord struct {
	ID             uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	CycleID        string  `gorm:"type:varchar(36);not null;index" json:"cycle_id"`
	Position       int     `gorm:"not null" json:"position"` // Порядок в последовательности
	Label          string  `gorm:"type:varchar(255);not null" json:"label"`
	Classification string  `gorm:"type:varchar(32);not null" json:"classification"`
	Confidence     float64 `gorm:"not null" json:"confidence"`
	BoxX           float64 `gorm:"not null" json:"box_x"`
	BoxY           float64 `gorm:"not null" json:"box_y"`
	BoxWidth       float64 `gorm:"not null" json:"box_width"`
	BoxHeight      float64 `gorm:"not null" json:"box_height"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Обратная связь с циклом
	Cycle Cycle `gorm:"foreignKey:CycleID;references:ID" json:"-"`
}

// TableName указывает имя таблицы для Cycle
func (Cycle) TableName() string {
	return "cycles"
}

// TableName указывает имя таблицы для DetectionRecord
func (DetectionRecord) TableName() string {
	return "detections"
}
