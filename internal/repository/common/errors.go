package common

import "errors"

// Общие ошибки репозиториев.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	// ErrStatusConflict условный UPDATE по статусу не затронул ни одной строки.
	ErrStatusConflict = errors.New("status changed concurrently")
	// ErrStockConflict остаток товара изменился между чтением и списанием.
	ErrStockConflict = errors.New("stock changed concurrently")
)
