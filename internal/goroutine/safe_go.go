package goroutine

import (
	"context"
	"runtime/debug"
	"time"
)

// Logger интерфейс для логирования ошибок
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler обрабатывает panic в горутинах
type RecoveryHandler struct {
	logger Logger
}

// NewRecoveryHandler создает новый обработчик
func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// SafeGo запускает горутину с обработкой panic
func (rh *RecoveryHandler) SafeGo(fn func()) {
	go func() {
		defer rh.recover()
		fn()
	}()
}

// SafeGoWithTimeout запускает fn с собственным контекстом, не зависящим от запроса.
// Используется для побочных эффектов, которые должны пережить ответ клиенту.
func (rh *RecoveryHandler) SafeGoWithTimeout(timeout time.Duration, fn func(context.Context)) {
	go func() {
		defer rh.recover()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (rh *RecoveryHandler) recover() {
	if r := recover(); r != nil {
		rh.logger.Errorf("Panic in goroutine: %v\nStack trace:\n%s", r, debug.Stack())
	}
}

var defaultHandler *RecoveryHandler

// SetLogger задаёт логгер глобального обработчика.
func SetLogger(l Logger) {
	defaultHandler = NewRecoveryHandler(l)
}

func handler() *RecoveryHandler {
	if defaultHandler == nil {
		defaultHandler = NewRecoveryHandler(nopLogger{})
	}
	return defaultHandler
}

type nopLogger struct{}

func (nopLogger) Errorf(string, ...interface{}) {}

// SafeGo - упрощенная функция для запуска безопасной горутины
func SafeGo(fn func()) {
	handler().SafeGo(fn)
}

// SafeGoWithTimeout - упрощенная функция для фоновой задачи с ограничением по времени
func SafeGoWithTimeout(timeout time.Duration, fn func(context.Context)) {
	handler().SafeGoWithTimeout(timeout, fn)
}
