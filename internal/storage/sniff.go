package storage

import (
	"bytes"
	"errors"
	"io"

	"github.com/h2non/filetype"
)

// ErrNotImage загруженный файл не распознан как изображение.
var ErrNotImage = errors.New("storage: файл не является изображением")

const sniffLen = 262

// SniffImage читает заголовок файла и определяет MIME по сигнатуре.
// Возвращает reader, который снова отдаёт файл с начала.
func SniffImage(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]

	if !filetype.IsImage(head) {
		return "", nil, ErrNotImage
	}
	kind, err := filetype.Match(head)
	if err != nil {
		return "", nil, ErrNotImage
	}
	return kind.MIME.Value, io.MultiReader(bytes.NewReader(head), r), nil
}
