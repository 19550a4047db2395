package engine

// State состояние движка инференса.
// Допустимые переходы: Uninitialized → Initializing → {Ready, Failed},
// из Failed инициализацию можно повторить;
// Ready ⇄ Busy на время каждого вызова инференса; любой переход в ShutDown
// терминален и необратим.
type State int32

const (
	StateUninitialized State = iota // Движок не создавался
	StateInitializing               // Идет инициализация ресурса
	StateReady                      // Готов принимать вызовы
	StateBusy                       // Выполняется вызов инференса
	StateFailed                     // Инициализация завершилась ошибкой
	StateShutDown                   // Движок остановлен навсегда
)

// String возвращает читаемое имя состояния
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateFailed:
		return "failed"
	case StateShutDown:
		return "shutdown"
	default:
		return "unknown"
	}
}
