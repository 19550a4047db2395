package repository

import (
	"fmt"

	"gorm.io/gorm"

	"scene-guard-go/internal/model"
)

// CycleRepository интерфейс для работы с историей циклов анализа
type CycleRepository interface {
	Create(cycle *model.Cycle) error
	GetByID(id string) (*model.Cycle, error)
	ListRecent(limit int) ([]*model.Cycle, error)
	DeleteOlderThanDays(days int) (int64, error)
}

// cycleRepository реализация CycleRepository
type cycleRepository struct {
	db *gorm.DB
}

// NewCycleRepository создает новый instance CycleRepository
func NewCycleRepository(db *gorm.DB) CycleRepository {
	return &cycleRepository{
		db: db,
	}
}

// Create сохраняет цикл вместе с детекциями в одной транзакции
func (r *cycleRepository) Create(cycle *model.Cycle) error {
	tx := r.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	detections := cycle.Detections
	cycle.Detections = nil

	if err := tx.Create(cycle).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create cycle: %w", err)
	}

	for i := range detections {
		detections[i].ID = 0 // Обнуляем ID для auto-increment
		detections[i].CycleID = cycle.ID

		if err := tx.Create(&detections[i]).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to create detection %d: %w", i, err)
		}
	}
	cycle.Detections = detections

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByID получает цикл по ID вместе с детекциями
func (r *cycleRepository) GetByID(id string) (*model.Cycle, error) {
	var cycle model.Cycle
	err := r.db.Preload("Detections", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("id = ?", id).First(&cycle).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("cycle not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}
	return &cycle, nil
}

// ListRecent возвращает последние циклы в порядке убывания времени
func (r *cycleRepository) ListRecent(limit int) ([]*model.Cycle, error) {
	var cycles []*model.Cycle
	err := r.db.Preload("Detections", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Order("created_at DESC").Limit(limit).Find(&cycles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	return cycles, nil
}

// DeleteOlderThanDays удаляет циклы старше заданного количества дней
func (r *cycleRepository) DeleteOlderThanDays(days int) (int64, error) {
	result := r.db.Where("created_at < NOW() - (? * INTERVAL '1 day')", days).Delete(&model.Cycle{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old cycles: %w", result.Error)
	}
	return result.RowsAffected, nil
}
