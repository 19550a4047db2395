package engine

import (
	"context"
	"sync"
	"time"
)

// SimulatedEngine детерминированный движок для разработки и тестов.
// Отвечает заранее заданными текстами по кругу, имитируя задержки
// инициализации и инференса настоящего движка.
type SimulatedEngine struct {
	InitDelay  time.Duration // Задержка инициализации
	InferDelay time.Duration // Задержка одного вызова инференса
	InitErr    error         // Если задана, инициализация завершается этой ошибкой
	InferErr   error         // Если задана, каждый вызов инференса завершается этой ошибкой
	Responses  []string      // Ответы, выдаваемые по кругу

	mu   sync.Mutex
	next int
}

// NewSimulatedEngine создает движок с набором типовых ответов
func NewSimulatedEngine() *SimulatedEngine {
	return &SimulatedEngine{
		InitDelay:  500 * time.Millisecond,
		InferDelay: 1500 * time.Millisecond,
		Responses: []string{
			"DETECTED: Человек в кадре\nRISK: low\nACTION: none\nCONFIDENCE: high",
			"DETECTED: Открытая дверь\nRISK: medium\nACTION: Проверить вход\nCONFIDENCE: medium",
			"DETECTED: Задымление у плиты\nRISK: high\nACTION: urgent проверить кухню\nCONFIDENCE: high",
			"DETECTED: Пустая сцена\nRISK: low\nACTION: none\nCONFIDENCE: low",
		},
	}
}

// Initialize имитирует создание тяжелого ресурса
func (e *SimulatedEngine) Initialize(ctx context.Context) error {
	select {
	case <-time.After(e.InitDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return e.InitErr
}

// Infer имитирует блокирующий вызов инференса
func (e *SimulatedEngine) Infer(ctx context.Context, image []byte, prompt string) (string, error) {
	select {
	case <-time.After(e.InferDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if e.InferErr != nil {
		return "", e.InferErr
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Responses) == 0 {
		return "", nil
	}
	resp := e.Responses[e.next%len(e.Responses)]
	e.next++
	return resp, nil
}

// Shutdown освобождает имитируемый ресурс
func (e *SimulatedEngine) Shutdown() error {
	return nil
}
