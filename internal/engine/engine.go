package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Engine внешняя мультимодальная возможность инференса.
// Создание ресурса стоит секунд и большого объема памяти, вызов Infer
// блокирующий и не реентерабельный — сериализацию обеспечивает Handle.
type Engine interface {
	// Initialize создает ресурс движка. При ошибке частично созданный
	// ресурс должен быть освобожден самой реализацией.
	Initialize(ctx context.Context) error

	// Infer выполняет один вызов инференса над изображением
	Infer(ctx context.Context, image []byte, prompt string) (string, error)

	// Shutdown освобождает ресурс движка
	Shutdown() error
}

// Handle управляет жизненным циклом движка и сериализацией вызовов.
// Единственный владелец ресурса движка; единственный легальный способ
// читать и менять готовность — переходы машины состояний State.
type Handle struct {
	mu        sync.Mutex
	state     State
	engine    Engine
	logger    *logrus.Logger
	everReady atomic.Bool
}

// NewHandle создает управляющую обертку над движком
func NewHandle(eng Engine, logger *logrus.Logger) *Handle {
	return &Handle{
		state:  StateUninitialized,
		engine: eng,
		logger: logger,
	}
}

// State возвращает текущее состояние движка
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// IsReady сообщает, готов ли движок принимать вызовы
func (h *Handle) IsReady() bool {
	return h.State() == StateReady
}

// EverReady сообщает, достигал ли движок готовности хотя бы раз
func (h *Handle) EverReady() bool {
	return h.everReady.Load()
}

// Initialize инициализирует движок. Идемпотентно: для уже готового движка
// вызов — no-op; параллельная инициализация отклоняется с ErrInitInProgress.
// При ошибке состояние откатывается в Failed и инициализацию можно повторить.
func (h *Handle) Initialize(ctx context.Context) error {
	h.mu.Lock()
	switch h.state {
	case StateReady, StateBusy:
		h.mu.Unlock()
		return nil
	case StateInitializing:
		h.mu.Unlock()
		return ErrInitInProgress
	case StateShutDown:
		h.mu.Unlock()
		return ErrEngineShutDown
	}
	h.state = StateInitializing
	h.mu.Unlock()

	h.logger.Info("Инициализируем движок инференса...")
	err := h.engine.Initialize(ctx)

	h.mu.Lock()
	if h.state == StateShutDown {
		h.mu.Unlock()
		// Движок остановили во время инициализации: созданный ресурс освобождаем здесь
		if err == nil {
			if shutErr := h.engine.Shutdown(); shutErr != nil {
				h.logger.Errorf("Ошибка освобождения движка после остановки: %v", shutErr)
			}
		}
		return ErrEngineShutDown
	}
	if err != nil {
		h.state = StateFailed
		h.mu.Unlock()
		h.logger.Errorf("Ошибка инициализации движка: %v", err)
		return fmt.Errorf("инициализация движка: %w", err)
	}
	h.state = StateReady
	h.mu.Unlock()

	h.everReady.Store(true)
	h.logger.Info("Движок инференса готов к работе")
	return nil
}

// InitializeAsync запускает инициализацию в фоне, не блокируя вызывающего
func (h *Handle) InitializeAsync(ctx context.Context) {
	go func() {
		if err := h.Initialize(ctx); err != nil {
			if err == ErrInitInProgress {
				return
			}
			h.logger.Errorf("Фоновая инициализация движка не удалась: %v", err)
		}
	}()
}

// Infer выполняет один сериализованный вызов инференса.
// Переход Ready→Busy атомарен: конкурирующий вызов немедленно получает
// ErrEngineBusy вместо постановки в очередь — очередь позволила бы памяти
// копиться позади многосекундного вызова.
func (h *Handle) Infer(ctx context.Context, image []byte, prompt string) (string, error) {
	h.mu.Lock()
	switch h.state {
	case StateShutDown:
		h.mu.Unlock()
		return "", ErrEngineShutDown
	case StateBusy:
		h.mu.Unlock()
		return "", ErrEngineBusy
	case StateReady:
		h.state = StateBusy
	default:
		h.mu.Unlock()
		return "", ErrEngineNotReady
	}
	h.mu.Unlock()

	text, err := h.engine.Infer(ctx, image, prompt)

	h.mu.Lock()
	// Остановку во время вызова не перезаписываем: ShutDown терминален
	if h.state == StateBusy {
		h.state = StateReady
	}
	h.mu.Unlock()

	if err != nil {
		return "", fmt.Errorf("вызов инференса: %w", err)
	}
	return text, nil
}

// Shutdown останавливает движок навсегда. Идемпотентно, не блокируется
// на выполняющемся вызове: ресурс освобождается вне блокировки состояния.
func (h *Handle) Shutdown() {
	h.mu.Lock()
	if h.state == StateShutDown {
		h.mu.Unlock()
		return
	}
	prev := h.state
	h.state = StateShutDown
	h.mu.Unlock()

	// Для Initializing ресурс освободит сама ветка инициализации,
	// для Uninitialized/Failed освобождать нечего
	if prev == StateReady || prev == StateBusy {
		if err := h.engine.Shutdown(); err != nil {
			h.logger.Errorf("Ошибка остановки движка: %v", err)
		}
	}
	h.logger.Info("Движок инференса остановлен")
}
