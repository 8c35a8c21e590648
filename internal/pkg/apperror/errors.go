package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeSuspended     ErrorCode = "SUSPENDED"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeUnavailable   ErrorCode = "NOT_IMPLEMENTED"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func Validation(message string) *AppError { return New(ErrCodeValidation, message) }
func NotFound(message string) *AppError   { return New(ErrCodeNotFound, message) }
func Forbidden(message string) *AppError  { return New(ErrCodeForbidden, message) }
func Conflict(message string) *AppError   { return New(ErrCodeConflict, message) }

// Internal оборачивает ошибку хранилища, сообщение клиенту остаётся общим.
func Internal(err error) *AppError {
	return Wrap(err, ErrCodeInternal, "внутренняя ошибка сервера")
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeSuspended:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeUnavailable:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func hasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool   { return hasCode(err, ErrCodeNotFound) }
func IsForbidden(err error) bool  { return hasCode(err, ErrCodeForbidden) }
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }
func IsConflict(err error) bool   { return hasCode(err, ErrCodeConflict) }

var (
	ErrUserNotFound       = New(ErrCodeNotFound, "пользователь не найден")
	ErrProductNotFound    = New(ErrCodeNotFound, "объявление не найдено")
	ErrOrderNotFound      = New(ErrCodeNotFound, "заказ не найден")
	ErrSubmissionNotFound = New(ErrCodeNotFound, "заявка на верификацию не найдена")
	ErrReportNotFound     = New(ErrCodeNotFound, "жалоба не найдена")
	ErrAppealNotFound     = New(ErrCodeNotFound, "апелляция не найдена")
	ErrUnauthorized       = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden          = New(ErrCodeForbidden, "недостаточно прав")
	ErrSuspended          = New(ErrCodeSuspended, "аккаунт заблокирован")
	ErrStorageDisabled    = New(ErrCodeUnavailable, "хранилище файлов не настроено")
)
