// Package clipboard читает текст системного буфера обмена для typing.Engine.
package clipboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
)

// ErrUnavailable: в системе нет механизма доступа к буферу (например, без xclip/xsel).
var ErrUnavailable = errors.New("clipboard: unavailable on this system")

// Reader: источник текста из буфера обмена.
type Reader struct {
	read func() (string, error)
}

func New() *Reader { return &Reader{read: clipboard.ReadAll} }

// ReadText возвращает текст буфера с переводами строк, приведёнными к \n.
// Для пустого буфера или буфера без текста: пустая строка без ошибки.
func (r *Reader) ReadText() (string, error) {
	if clipboard.Unsupported {
		return "", ErrUnavailable
	}
	text, err := r.read()
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return normalizeNewlines(text), nil
}

func normalizeNewlines(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
