package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics счетчики и гистограммы конвейера анализа кадров
type Metrics struct {
	FramesSubmitted   prometheus.Counter   // Все поступившие кадры
	FramesAdmitted    prometheus.Counter   // Кадры, допущенные к анализу
	FramesDropped     prometheus.Counter   // Кадры, отброшенные шлюзом
	FallbackCycles    prometheus.Counter   // Циклы, завершившиеся резервной последовательностью
	InferenceDuration prometheus.Histogram // Длительность вызова инференса
	EngineState       prometheus.Gauge     // Текущее состояние движка (числовой код State)
}

// New регистрирует метрики конвейера в заданном регистре
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FramesSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "sceneguard_frames_submitted_total",
			Help: "Количество кадров, поступивших от источника",
		}),
		FramesAdmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "sceneguard_frames_admitted_total",
			Help: "Количество кадров, допущенных к анализу",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "sceneguard_frames_dropped_total",
			Help: "Количество кадров, отброшенных шлюзом допуска",
		}),
		FallbackCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "sceneguard_fallback_cycles_total",
			Help: "Количество циклов с резервной последовательностью детекций",
		}),
		InferenceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sceneguard_inference_duration_seconds",
			Help:    "Длительность вызова инференса",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		EngineState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sceneguard_engine_state",
			Help: "Текущее состояние движка инференса (числовой код)",
		}),
	}
}
