package scene

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"scene-guard-go/internal/engine"
	"scene-guard-go/internal/gate"
	"scene-guard-go/internal/metrics"
	"scene-guard-go/internal/parser"
	"scene-guard-go/internal/vision"
	"scene-guard-go/pkg/models"
)

// ControllerState состояние контроллера сцены
type ControllerState int32

const (
	StateIdle           ControllerState = iota // Ожидание кадров
	StateAwaitingEngine                        // Движок еще инициализируется
	StateProcessing                            // Идет цикл анализа кадра
)

// Consumer получатель результатов циклов анализа
type Consumer interface {
	Deliver(result models.CycleResult)
}

// diagnosticResponse фиксированный диагностический ответ: сбой начавшегося
// вызова инференса проходит через обычный парсер, а не через отдельный путь
const diagnosticResponse = "DETECTED: Сбой анализа кадра\n" +
	"RISK: low\n" +
	"ACTION: none\n" +
	"CONFIDENCE: low"

// Controller оркестратор конвейера анализа: шлюз допуска → нормализация →
// инференс → разбор ответа → доставка потребителям. Каждый допущенный кадр
// завершается ровно одной доставкой (настоящей или резервной), а буфер кадра
// освобождается ровно один раз на любом пути выполнения.
type Controller struct {
	gate       *gate.Gate
	normalizer *vision.Normalizer
	handle     *engine.Handle
	parser     *parser.Parser
	consumers  []Consumer
	logger     *logrus.Logger
	metrics    *metrics.Metrics
	prompt     string

	state atomic.Int32

	ctxMu   sync.Mutex
	baseCtx context.Context

	wg sync.WaitGroup
}

// NewController создает контроллер сцены. metrics может быть nil.
func NewController(
	g *gate.Gate,
	normalizer *vision.Normalizer,
	handle *engine.Handle,
	p *parser.Parser,
	prompt string,
	logger *logrus.Logger,
	m *metrics.Metrics,
	consumers ...Consumer,
) *Controller {
	return &Controller{
		gate:       g,
		normalizer: normalizer,
		handle:     handle,
		parser:     p,
		consumers:  consumers,
		logger:     logger,
		metrics:    m,
		prompt:     prompt,
		baseCtx:    context.Background(),
	}
}

// State возвращает текущее состояние контроллера
func (c *Controller) State() ControllerState {
	return ControllerState(c.state.Load())
}

// IsReady сообщает, готов ли движок инференса
func (c *Controller) IsReady() bool {
	return c.handle.IsReady()
}

// EngineState возвращает текущее состояние движка инференса
func (c *Controller) EngineState() engine.State {
	return c.handle.State()
}

// Start запускает фоновую инициализацию движка, не блокируя вызывающего.
// До готовности движка шлюз не допускает кадры.
func (c *Controller) Start(ctx context.Context) {
	c.ctxMu.Lock()
	c.baseCtx = ctx
	c.ctxMu.Unlock()

	if c.handle.IsReady() {
		c.state.Store(int32(StateIdle))
		return
	}

	c.state.Store(int32(StateAwaitingEngine))
	c.logger.Info("Запуск контроллера сцены, ожидаем готовности движка")

	go func() {
		err := c.handle.Initialize(ctx)
		if err != nil && !errors.Is(err, engine.ErrInitInProgress) {
			// Состояние движка осталось повторяемым, кадры продолжают отбрасываться
			c.logger.Errorf("Движок не инициализирован, контроллер остается в ожидании: %v", err)
			return
		}
		c.state.CompareAndSwap(int32(StateAwaitingEngine), int32(StateIdle))
	}()
}

// SubmitFrame принимает кадр от источника. Никогда не блокирует:
// либо кадр допущен и анализ уходит в фон, либо кадр сразу освобождается.
// Возвращает true, если кадр допущен к анализу.
func (c *Controller) SubmitFrame(frame *vision.Frame) bool {
	if c.metrics != nil {
		c.metrics.FramesSubmitted.Inc()
		c.metrics.EngineState.Set(float64(c.handle.State()))
	}

	now := frame.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	if !c.gate.Admit(now) {
		frame.Close()
		if c.metrics != nil {
			c.metrics.FramesDropped.Inc()
		}
		return false
	}

	c.gate.RecordAdmitted(now)
	if c.metrics != nil {
		c.metrics.FramesAdmitted.Inc()
	}

	c.wg.Add(1)
	go c.processFrame(frame)
	return true
}

// processFrame выполняет один цикл анализа допущенного кадра
func (c *Controller) processFrame(frame *vision.Frame) {
	defer c.wg.Done()
	// Единственная точка освобождения кадра: Close идемпотентен,
	// поэтому любой путь выполнения безопасен
	defer frame.Close()

	wasIdle := c.state.CompareAndSwap(int32(StateIdle), int32(StateProcessing))
	if wasIdle {
		defer c.state.CompareAndSwap(int32(StateProcessing), int32(StateIdle))
	}

	start := time.Now()
	fallback := false
	var text string

	encoded, err := c.normalizer.Normalize(frame)
	if err != nil {
		c.logger.Warnf("Кадр не преобразован, цикл завершается резервными детекциями: %v", err)
		fallback = true
	} else {
		inferStart := time.Now()
		text, err = c.handle.Infer(c.context(), encoded.Data, c.prompt)
		if c.metrics != nil {
			c.metrics.InferenceDuration.Observe(time.Since(inferStart).Seconds())
		}

		switch {
		case err == nil:
		case errors.Is(err, engine.ErrEngineBusy):
			// Отклонение конкурирующего вызова — не отказ
			c.logger.Debug("Движок занят, цикл завершается резервными детекциями")
			fallback = true
		case errors.Is(err, engine.ErrEngineNotReady), errors.Is(err, engine.ErrEngineShutDown):
			c.logger.Debugf("Движок недоступен: %v", err)
			fallback = true
		default:
			// Сбой начавшегося вызова: подставляем диагностический ответ
			// и ведем его через обычный парсер
			c.logger.Errorf("Ошибка инференса: %v", err)
			text = diagnosticResponse
		}
	}

	var detections []models.Detection
	if fallback {
		detections = c.parser.Fallback(c.handle.EverReady())
	} else {
		detections = c.parser.Parse(text, c.handle.EverReady())
	}

	isFallback := fallback || c.parser.IsFallback(detections)
	if isFallback && c.metrics != nil {
		c.metrics.FallbackCycles.Inc()
	}

	result := models.CycleResult{
		CycleID:     uuid.New().String(),
		Detections:  detections,
		Fallback:    isFallback,
		FrameWidth:  frame.Width,
		FrameHeight: frame.Height,
		ElapsedMS:   time.Since(start).Milliseconds(),
		CreatedAt:   time.Now(),
	}

	c.deliver(result)
}

// deliver отдает результат цикла всем потребителям
func (c *Controller) deliver(result models.CycleResult) {
	for _, consumer := range c.consumers {
		consumer.Deliver(result)
	}
}

// Shutdown останавливает движок. Идемпотентно, не ждет завершения
// выполняющегося цикла: тот завершится резервной доставкой.
func (c *Controller) Shutdown() {
	c.logger.Info("Остановка контроллера сцены")
	c.handle.Shutdown()
}

// Wait дожидается завершения всех запущенных циклов анализа
func (c *Controller) Wait() {
	c.wg.Wait()
}

// context возвращает базовый контекст для вызовов инференса
func (c *Controller) context() context.Context {
	c.ctxMu.Lock()
	defer c.ctxMu.Unlock()
	return c.baseCtx
}
