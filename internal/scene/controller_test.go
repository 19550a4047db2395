package scene

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"scene-guard-go/internal/engine"
	"scene-guard-go/internal/gate"
	"scene-guard-go/internal/parser"
	"scene-guard-go/internal/vision"
	"scene-guard-go/pkg/models"
)

// fakeEngine управляемый движок для тестов конвейера
type fakeEngine struct {
	inferText    string
	inferErr     error
	inferRelease chan struct{} // Если не nil, Infer блокируется до закрытия
	inferStarted chan struct{} // Закрывается при входе в Infer
}

func (f *fakeEngine) Initialize(ctx context.Context) error { return nil }

func (f *fakeEngine) Infer(ctx context.Context, image []byte, prompt string) (string, error) {
	if f.inferStarted != nil {
		close(f.inferStarted)
		f.inferStarted = nil
	}
	if f.inferRelease != nil {
		<-f.inferRelease
	}
	return f.inferText, f.inferErr
}

func (f *fakeEngine) Shutdown() error { return nil }

// chanConsumer собирает доставки в канал
type chanConsumer struct {
	results chan models.CycleResult
}

func newChanConsumer() *chanConsumer {
	return &chanConsumer{results: make(chan models.CycleResult, 16)}
}

func (c *chanConsumer) Deliver(result models.CycleResult) {
	c.results <- result
}

func (c *chanConsumer) wait(t *testing.T) models.CycleResult {
	t.Helper()
	select {
	case result := <-c.results:
		return result
	case <-time.After(5 * time.Second):
		t.Fatal("доставка результата не произошла")
		return models.CycleResult{}
	}
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// countedFrame валидный кадр 32x24 со счетчиком освобождений
func countedFrame(released *atomic.Int32) *vision.Frame {
	width, height := 32, 24
	cw, ch := width/2, height/2
	return vision.NewFrame(
		make([]byte, width*height),
		make([]byte, cw*ch),
		make([]byte, cw*ch),
		width, cw, width, height,
		time.Now(),
		func() { released.Add(1) },
	)
}

// brokenFrame кадр с несогласованными плоскостями, не проходящий нормализацию
func brokenFrame(released *atomic.Int32) *vision.Frame {
	return vision.NewFrame(
		make([]byte, 10), nil, nil,
		32, 16, 32, 24,
		time.Now(),
		func() { released.Add(1) },
	)
}

func newTestController(eng engine.Engine, g *gate.Gate, consumers ...Consumer) (*Controller, *engine.Handle) {
	handle := engine.NewHandle(eng, discardLogger())
	c := NewController(
		g,
		vision.NewNormalizer(640, 85),
		handle,
		parser.New(),
		"prompt",
		discardLogger(),
		nil,
		consumers...,
	)
	return c, handle
}

func TestControllerDeliversOncePerAdmittedFrame(t *testing.T) {
	consumer := newChanConsumer()
	c, handle := newTestController(&fakeEngine{inferText: "DETECTED: cup\nRISK: high\nCONFIDENCE: high"}, gate.New(0, nil), consumer)
	require.NoError(t, handle.Initialize(context.Background()))

	var released atomic.Int32
	require.True(t, c.SubmitFrame(countedFrame(&released)))
	c.Wait()

	result := consumer.wait(t)
	require.False(t, result.Fallback)
	require.Len(t, result.Detections, 1)
	require.Equal(t, "cup", result.Detections[0].Label)
	require.Equal(t, "high", result.Detections[0].Classification)
	require.Equal(t, 32, result.FrameWidth)
	require.Equal(t, 24, result.FrameHeight)
	require.NotEmpty(t, result.CycleID)

	// Ровно одна доставка и ровно одно освобождение кадра
	require.Empty(t, consumer.results)
	require.Equal(t, int32(1), released.Load())
}

func TestControllerDropsFrameWhenEngineNotReady(t *testing.T) {
	consumer := newChanConsumer()
	handle := engine.NewHandle(&fakeEngine{}, discardLogger())
	c := NewController(
		gate.New(0, handle.IsReady),
		vision.NewNormalizer(640, 85),
		handle,
		parser.New(),
		"prompt",
		discardLogger(),
		nil,
		consumer,
	)

	var released atomic.Int32
	require.False(t, c.SubmitFrame(countedFrame(&released)))

	// Отклоненный кадр освобожден сразу и без доставки
	require.Equal(t, int32(1), released.Load())
	require.Empty(t, consumer.results)
}

func TestControllerThrottlesByInterval(t *testing.T) {
	consumer := newChanConsumer()
	c, handle := newTestController(&fakeEngine{inferText: "DETECTED: cup"}, gate.New(time.Hour, nil), consumer)
	require.NoError(t, handle.Initialize(context.Background()))

	var first, second atomic.Int32
	require.True(t, c.SubmitFrame(countedFrame(&first)))
	require.False(t, c.SubmitFrame(countedFrame(&second)))
	c.Wait()

	consumer.wait(t)
	require.Empty(t, consumer.results)
	require.Equal(t, int32(1), first.Load())
	require.Equal(t, int32(1), second.Load())
}

func TestControllerBusyEngineYieldsFallback(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	consumer := newChanConsumer()
	c, handle := newTestController(
		&fakeEngine{inferText: "DETECTED: cup", inferRelease: release, inferStarted: started},
		gate.New(0, nil),
		consumer,
	)
	require.NoError(t, handle.Initialize(context.Background()))

	var first, second atomic.Int32
	require.True(t, c.SubmitFrame(countedFrame(&first)))
	<-started

	// Второй кадр проходит шлюз, но движок занят: цикл завершается резервно
	require.True(t, c.SubmitFrame(countedFrame(&second)))

	fallbackResult := consumer.wait(t)
	require.True(t, fallbackResult.Fallback)
	require.Len(t, fallbackResult.Detections, 1)
	require.Equal(t, parser.FallbackLabelEmpty, fallbackResult.Detections[0].Label)

	close(release)
	c.Wait()

	realResult := consumer.wait(t)
	require.False(t, realResult.Fallback)
	require.Equal(t, "cup", realResult.Detections[0].Label)

	require.Equal(t, int32(1), first.Load())
	require.Equal(t, int32(1), second.Load())
}

func TestControllerConversionFailureYieldsFallback(t *testing.T) {
	consumer := newChanConsumer()
	c, handle := newTestController(&fakeEngine{inferText: "DETECTED: cup"}, gate.New(0, nil), consumer)
	require.NoError(t, handle.Initialize(context.Background()))

	var released atomic.Int32
	require.True(t, c.SubmitFrame(brokenFrame(&released)))
	c.Wait()

	result := consumer.wait(t)
	require.True(t, result.Fallback)
	require.Len(t, result.Detections, 1)
	require.Equal(t, parser.FallbackLabelEmpty, result.Detections[0].Label)
	require.Equal(t, int32(1), released.Load())
}

func TestControllerInferenceErrorYieldsDiagnostic(t *testing.T) {
	consumer := newChanConsumer()
	c, handle := newTestController(&fakeEngine{inferErr: errors.New("timeout")}, gate.New(0, nil), consumer)
	require.NoError(t, handle.Initialize(context.Background()))

	var released atomic.Int32
	require.True(t, c.SubmitFrame(countedFrame(&released)))
	c.Wait()

	// Сбой начавшегося вызова дает диагностическую детекцию, не резервную
	result := consumer.wait(t)
	require.False(t, result.Fallback)
	require.Len(t, result.Detections, 1)
	require.Equal(t, "Сбой анализа кадра", result.Detections[0].Label)
	require.Equal(t, "low", result.Detections[0].Classification)
	require.Equal(t, int32(1), released.Load())
}

func TestControllerSubmitAfterShutdownYieldsFallback(t *testing.T) {
	consumer := newChanConsumer()
	c, handle := newTestController(&fakeEngine{inferText: "DETECTED: cup"}, gate.New(0, nil), consumer)
	require.NoError(t, handle.Initialize(context.Background()))
	c.Shutdown()

	var released atomic.Int32
	require.True(t, c.SubmitFrame(countedFrame(&released)))
	c.Wait()

	result := consumer.wait(t)
	require.True(t, result.Fallback)
	require.Equal(t, int32(1), released.Load())
}

func TestControllerStartInitializesEngine(t *testing.T) {
	consumer := newChanConsumer()
	c, handle := newTestController(&fakeEngine{inferText: "DETECTED: cup"}, gate.New(0, nil), consumer)

	require.Equal(t, engine.StateUninitialized, c.EngineState())
	c.Start(context.Background())

	require.Eventually(t, func() bool {
		return handle.IsReady() && c.State() == StateIdle
	}, 5*time.Second, 10*time.Millisecond)
	require.True(t, c.IsReady())
}
