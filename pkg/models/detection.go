package models

import "time"

// BoundingBox прямоугольная область в нормализованных координатах кадра [0..1]
type BoundingBox struct {
	X      float64 `json:"x"`      // Координата X левого верхнего угла
	Y      float64 `json:"y"`      // Координата Y левого верхнего угла
	Width  float64 `json:"width"`  // Ширина области
	Height float64 `json:"height"` // Высота области
}

// Detection детекция, построенная из ответа мультимодального движка
type Detection struct {
	Label          string      `json:"label"`          // Что обнаружено
	Classification string      `json:"classification"` // Уровень риска или класс действия (low/medium/high/critical)
	Confidence     float64     `json:"confidence"`     // Квантованная уверенность [0..1]
	Box            BoundingBox `json:"box"`            // Область на кадре (фиксированная, модель не даёт координат)
}

// ParsedFields промежуточные поля, извлечённые из текста ответа движка
type ParsedFields struct {
	Detected   string // Что обнаружено (без значения по умолчанию)
	Risk       string // Уровень риска, по умолчанию "low"
	Action     string // Рекомендуемое действие, по умолчанию пусто
	Confidence string // Текстовая уверенность, по умолчанию "medium"
}

// CycleResult результат одного цикла анализа кадра
type CycleResult struct {
	CycleID     string      `json:"cycle_id"`     // Уникальный ID цикла
	Detections  []Detection `json:"detections"`   // Упорядоченный список детекций (1-2 элемента)
	Fallback    bool        `json:"fallback"`     // Результат получен из резервной последовательности
	FrameWidth  int         `json:"frame_width"`  // Ширина исходного кадра
	FrameHeight int         `json:"frame_height"` // Высота исходного кадра
	ElapsedMS   int64       `json:"elapsed_ms"`   // Длительность цикла в миллисекундах
	CreatedAt   time.Time   `json:"created_at"`   // Время завершения цикла
}

// SubmitResponse ответ на загрузку кадра
type SubmitResponse struct {
	Status  string `json:"status"`  // accepted / dropped
	Message string `json:"message"` // Пояснение к решению
}

// HealthResponse ответ проверки здоровья сервиса
type HealthResponse struct {
	Status      string `json:"status"`       // Статус сервиса (healthy/unhealthy)
	EngineState string `json:"engine_state"` // Текущее состояние движка инференса
	EngineReady bool   `json:"engine_ready"` // Готов ли движок принимать кадры
	Version     string `json:"version"`      // Версия сервиса
}

// VLMGenerateRequest запрос к серверу мультимодальной модели
type VLMGenerateRequest struct {
	Model  string   `json:"model"`  // Имя модели
	Prompt string   `json:"prompt"` // Текст запроса
	Images []string `json:"images"` // Изображения в base64
	Stream bool     `json:"stream"` // Потоковый режим (не используется)
}

// VLMGenerateResponse ответ сервера мультимодальной модели
type VLMGenerateResponse struct {
	Model    string `json:"model"`    // Имя модели
	Response string `json:"response"` // Текст ответа
	Done     bool   `json:"done"`     // Завершена ли генерация
}

// VLMHealthResponse ответ проверки здоровья сервера модели
type VLMHealthResponse struct {
	Status      string `json:"status"`       // Статус сервера (healthy/unhealthy)
	ModelLoaded bool   `json:"model_loaded"` // Загружена ли модель
	Version     string `json:"version"`      // Версия сервера
}
