package gate

import (
	"sync"
	"time"
)

// Gate контролирует допуск кадров к анализу.
// Кадр допускается, только если с последнего допуска прошло не меньше
// заданного интервала и движок инференса готов. Решение никогда не блокирует:
// инференс на порядки медленнее частоты камеры, без дросселирования кадры
// копились бы без ограничения.
type Gate struct {
	mu           sync.Mutex
	interval     time.Duration
	lastAdmitted time.Time
	ready        func() bool
}

// New создает шлюз с заданным интервалом и функцией готовности движка
func New(interval time.Duration, ready func() bool) *Gate {
	return &Gate{
		interval: interval,
		ready:    ready,
	}
}

// Admit решает, допускается ли кадр с меткой времени now.
// Состояние не изменяет: допущенный кадр фиксируется отдельно через RecordAdmitted.
func (g *Gate) Admit(now time.Time) bool {
	if g.ready != nil && !g.ready() {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastAdmitted.IsZero() {
		return true
	}
	return now.Sub(g.lastAdmitted) >= g.interval
}

// RecordAdmitted фиксирует момент допуска кадра
func (g *Gate) RecordAdmitted(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastAdmitted = now
}

// Interval возвращает настроенный интервал дросселирования
func (g *Gate) Interval() time.Duration {
	return g.interval
}
