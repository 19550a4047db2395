package parser

import (
	"strings"

	"scene-guard-go/pkg/models"
)

// FieldTag тег распознаваемого поля в ответе модели
type FieldTag int

const (
	FieldDetected FieldTag = iota
	FieldRisk
	FieldAction
	FieldConfidence
)

// fieldPrefixes таблица префиксов протокола ответа.
// Сопоставление регистрозависимое, строки обрабатываются по порядку,
// последнее вхождение префикса перекрывает предыдущие.
var fieldPrefixes = []struct {
	tag    FieldTag
	prefix string
}{
	{FieldDetected, "DETECTED:"},
	{FieldRisk, "RISK:"},
	{FieldAction, "ACTION:"},
	{FieldConfidence, "CONFIDENCE:"},
}

// Метки резервной детекции: до первой готовности движка и после неё
const (
	FallbackLabelStarting = "Анализ недоступен"
	FallbackLabelEmpty    = "Объект не распознан"
)

// Фиксированные области детекций: модель не возвращает координат,
// поэтому основная детекция привязана к центру кадра, а действие — к нижней полосе
var (
	primaryBox = models.BoundingBox{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}
	actionBox  = models.BoundingBox{X: 0.1, Y: 0.78, Width: 0.8, Height: 0.18}
)

// Parser превращает полуструктурированный текст ответа движка в детекции.
// Тотальная функция: любой вход дает непустую последовательность —
// либо разобранные детекции, либо детерминированную резервную.
type Parser struct{}

// New создает парсер ответов
func New() *Parser {
	return &Parser{}
}

// Parse разбирает текст ответа движка.
// Пустой текст и ответ без поля DETECTED равнозначны отсутствию ответа.
// engineWasReady влияет только на метку резервной детекции.
func (p *Parser) Parse(text string, engineWasReady bool) (detections []models.Detection) {
	// Сбой разбора никогда не поднимается выше парсера
	defer func() {
		if r := recover(); r != nil {
			detections = p.Fallback(engineWasReady)
		}
	}()

	if text == "" {
		return p.Fallback(engineWasReady)
	}

	fields := extractFields(text)
	if fields.Detected == "" {
		return p.Fallback(engineWasReady)
	}

	confidence := mapConfidence(fields.Confidence)

	detections = append(detections, models.Detection{
		Label:          fields.Detected,
		Classification: strings.ToLower(fields.Risk),
		Confidence:     confidence,
		Box:            primaryBox,
	})

	action := strings.TrimSpace(fields.Action)
	if action != "" && !strings.EqualFold(action, "none") {
		detections = append(detections, models.Detection{
			Label:          "Action: " + action,
			Classification: classifyAction(action),
			Confidence:     confidence,
			Box:            actionBox,
		})
	}

	return detections
}

// Fallback возвращает детерминированную резервную последовательность из одной детекции
func (p *Parser) Fallback(engineWasReady bool) []models.Detection {
	label := FallbackLabelStarting
	if engineWasReady {
		label = FallbackLabelEmpty
	}
	return []models.Detection{{
		Label:          label,
		Classification: "medium",
		Confidence:     0.5,
		Box:            primaryBox,
	}}
}

// IsFallback сообщает, является ли последовательность резервной
func (p *Parser) IsFallback(detections []models.Detection) bool {
	if len(detections) != 1 {
		return false
	}
	label := detections[0].Label
	return label == FallbackLabelStarting || label == FallbackLabelEmpty
}

// extractFields сканирует строки ответа и заполняет поля по таблице префиксов
func extractFields(text string) models.ParsedFields {
	fields := models.ParsedFields{
		Risk:       "low",
		Confidence: "medium",
	}

	for _, line := range strings.Split(text, "\n") {
		for _, fp := range fieldPrefixes {
			if !strings.HasPrefix(line, fp.prefix) {
				continue
			}
			value := strings.TrimSpace(strings.TrimPrefix(line, fp.prefix))
			switch fp.tag {
			case FieldDetected:
				fields.Detected = value
			case FieldRisk:
				fields.Risk = value
			case FieldAction:
				fields.Action = value
			case FieldConfidence:
				fields.Confidence = value
			}
			break
		}
	}

	return fields
}

// mapConfidence квантует текстовую уверенность в фиксированное число
func mapConfidence(text string) float64 {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "high":
		return 0.9
	case "medium":
		return 0.7
	case "low":
		return 0.5
	default:
		return 0.6
	}
}

// classifyAction определяет класс детекции-действия по ключевым словам
func classifyAction(action string) string {
	lower := strings.ToLower(action)
	switch {
	case strings.Contains(lower, "urgent"):
		return "critical"
	case strings.Contains(lower, "caution"):
		return "high"
	default:
		return "medium"
	}
}
