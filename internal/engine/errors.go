package engine

import "errors"

// Ошибки жизненного цикла движка. Busy и NotReady разрешаются локально
// резервной последовательностью детекций и не считаются отказами;
// ShutDown терминальна и никогда не повторяется.
var (
	// ErrEngineBusy вызов инференса отклонен: другой вызов уже выполняется
	ErrEngineBusy = errors.New("engine is busy with another inference call")

	// ErrEngineNotReady движок еще не инициализирован или инициализация не удалась
	ErrEngineNotReady = errors.New("engine is not ready")

	// ErrEngineShutDown движок остановлен, все вызовы отклоняются
	ErrEngineShutDown = errors.New("engine is shut down")

	// ErrInitInProgress инициализация уже выполняется, повторный запуск отклонен
	ErrInitInProgress = errors.New("engine initialization already in progress")
)
