//go:build windows

package inject

import (
	"Typist/internal/service/typing"
	"context"
	"fmt"
	"sync"
	"unicode/utf16"
	"unsafe"

	"github.com/lxn/win"
	"go.uber.org/zap"
)

const (
	keyeventfKeyUp   = 0x0002
	keyeventfUnicode = 0x0004
)

// keyboardInput повторяет раскладку INPUT с союзом под MOUSEINPUT:
// 40 байт на amd64, 28 на 386.
type keyboardInput struct {
	typ uint32
	ki  keybdInput
	_   [8]byte
}

type keybdInput struct {
	vk    uint16
	scan  uint16
	flags uint32
	time  uint32
	extra uintptr
}

// Native печатает через SendInput: текст уходит unicode-событиями, без раскладки.
type Native struct {
	mu     sync.Mutex
	logger *zap.SugaredLogger
}

var _ typing.KeyInjector = (*Native)(nil)

func newNative(logger *zap.SugaredLogger) (typing.KeyInjector, error) {
	return &Native{logger: logger}, nil
}

func (n *Native) TypeText(ctx context.Context, text string) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	units := utf16.Encode([]rune(text))
	inputs := make([]keyboardInput, 0, len(units)*2)
	for _, u := range units {
		inputs = append(inputs,
			keyboardInput{typ: win.INPUT_KEYBOARD, ki: keybdInput{scan: u, flags: keyeventfUnicode}},
			keyboardInput{typ: win.INPUT_KEYBOARD, ki: keybdInput{scan: u, flags: keyeventfUnicode | keyeventfKeyUp}},
		)
	}
	return n.send(inputs)
}

func (n *Native) PressKey(ctx context.Context, key typing.Control) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	var vk uint16
	switch key {
	case typing.ControlEnter:
		vk = win.VK_RETURN
	case typing.ControlTab:
		vk = win.VK_TAB
	default:
		return fmt.Errorf("inject: unknown control key %d", int(key))
	}
	return n.send([]keyboardInput{
		{typ: win.INPUT_KEYBOARD, ki: keybdInput{vk: vk}},
		{typ: win.INPUT_KEYBOARD, ki: keybdInput{vk: vk, flags: keyeventfKeyUp}},
	})
}

func (n *Native) send(inputs []keyboardInput) error {
	if len(inputs) == 0 {
		return nil
	}
	// пакеты из разных горутин не должны перемежаться
	n.mu.Lock()
	defer n.mu.Unlock()
	sent := win.SendInput(uint32(len(inputs)), unsafe.Pointer(&inputs[0]), int32(unsafe.Sizeof(inputs[0])))
	if int(sent) != len(inputs) {
		return fmt.Errorf("SendInput: inserted %d of %d events (input blocked by another thread or UIPI)", sent, len(inputs))
	}
	return nil
}
