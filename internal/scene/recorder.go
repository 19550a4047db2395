package scene

import (
	"github.com/sirupsen/logrus"

	"scene-guard-go/internal/model"
	"scene-guard-go/internal/repository"
	"scene-guard-go/pkg/models"
)

// Recorder сохраняет результаты циклов в базу данных.
// Запись выполняется в горутине доставки, вне пути допуска кадров;
// ошибка записи не влияет на доставку другим потребителям.
type Recorder struct {
	repo   repository.CycleRepository
	logger *logrus.Logger
}

// NewRecorder создает потребителя, сохраняющего историю циклов
func NewRecorder(repo repository.CycleRepository, logger *logrus.Logger) *Recorder {
	return &Recorder{
		repo:   repo,
		logger: logger,
	}
}

// Deliver реализует Consumer
func (r *Recorder) Deliver(result models.CycleResult) {
	cycle := &model.Cycle{
		ID:          result.CycleID,
		Fallback:    result.Fallback,
		FrameWidth:  result.FrameWidth,
		FrameHeight: result.FrameHeight,
		ElapsedMS:   result.ElapsedMS,
	}

	for i, det := range result.Detections {
		cycle.Detections = append(cycle.Detections, model.DetectionRecord{
			CycleID:        result.CycleID,
			Position:       i,
			Label:          det.Label,
			Classification: det.Classification,
			Confidence:     det.Confidence,
			BoxX:           det.Box.X,
			BoxY:           det.Box.Y,
			BoxWidth:       det.Box.Width,
			BoxHeight:      det.Box.Height,
		})
	}

	if err := r.repo.Create(cycle); err != nil {
		r.logger.Errorf("Ошибка сохранения цикла %s в БД: %v", result.CycleID, err)
	}
}
