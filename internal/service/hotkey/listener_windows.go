//go:build windows

package hotkey

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"syscall"
	"time"
	"unsafe"

	"github.com/lxn/win"
	"go.uber.org/zap"
)

// Обёртки для функций, которых может не быть в lxn/win
var (
	user32               = syscall.NewLazyDLL("user32.dll")
	procRegisterHotKey   = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey = user32.NewProc("UnregisterHotKey")
)

const modNoRepeat = 0x4000

type winListener struct {
	logger *zap.SugaredLogger
}

func newPlatformListener(logger *zap.SugaredLogger) (listener, error) {
	return &winListener{logger: logger}, nil
}

func (w *winListener) run(ctx context.Context, bindings []Binding, out chan<- Event) error {
	// UI/WinAPI должен жить в закрепленном системном потоке
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	className := syscall.StringToUTF16Ptr("TypistHotkeyWindowClass")

	var wc win.WNDCLASSEX
	wc.CbSize = uint32(unsafe.Sizeof(wc))
	wc.LpfnWndProc = syscall.NewCallback(func(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
		switch msg {
		case win.WM_HOTKEY:
			id := int(wParam)
			if id >= 1 && id <= len(bindings) {
				select {
				case out <- Event{Action: bindings[id-1].Action, At: time.Now()}:
				default:
				}
			}
			return 0
		case win.WM_DESTROY:
			win.PostQuitMessage(0)
			return 0
		}
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	})
	wc.HInstance = win.GetModuleHandle(nil)
	wc.LpszClassName = className
	// повторная регистрация класса после перезапуска слушателя не страшна
	win.RegisterClassEx(&wc)

	hwnd := win.CreateWindowEx(0, className, syscall.StringToUTF16Ptr("TypistHotkeyWindow"), 0,
		0, 0, 0, 0, 0, 0, wc.HInstance, nil)
	if hwnd == 0 {
		return errors.New("hotkey: failed to create message window")
	}

	var registered []int32
	var failed []error
	for i, b := range bindings {
		id := int32(i + 1)
		if registerHotKey(hwnd, id, b.Modifiers|modNoRepeat, b.Key) {
			registered = append(registered, id)
			continue
		}
		failed = append(failed, fmt.Errorf("%s (%s) is taken by another application", b.Spec, b.Action))
		w.logger.Warnw("Hotkey registration failed", "action", b.Action, "keys", b.Spec)
	}
	if len(registered) == 0 {
		win.DestroyWindow(hwnd)
		return fmt.Errorf("hotkey: nothing registered: %w", errors.Join(failed...))
	}

	go func() {
		<-ctx.Done()
		win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
	}()

	msg := new(win.MSG)
	for {
		r := win.GetMessage(msg, 0, 0, 0)
		if r == 0 || r == -1 { // WM_QUIT или ошибка
			break
		}
		win.TranslateMessage(msg)
		win.DispatchMessage(msg)
	}

	for _, id := range registered {
		unregisterHotKey(hwnd, id)
	}
	return nil
}

func registerHotKey(hwnd win.HWND, id int32, modifiers uint32, vk uint32) bool {
	if procRegisterHotKey.Find() != nil {
		return false
	}
	r, _, _ := procRegisterHotKey.Call(uintptr(hwnd), uintptr(id), uintptr(modifiers), uintptr(vk))
	return r != 0
}

func unregisterHotKey(hwnd win.HWND, id int32) bool {
	if procUnregisterHotKey.Find() != nil {
		return false
	}
	r, _, _ := procUnregisterHotKey.Call(uintptr(hwnd), uintptr(id))
	return r != 0
}
