//go:build windows

package window

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
)

var (
	user32                       = syscall.NewLazyDLL("user32.dll")
	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
)

// Число колбэков syscall.NewCallback ограничено, поэтому колбэк один на процесс,
// а результат перебора собирается под enumMu.
var (
	enumMu       sync.Mutex
	enumFound    []uintptr
	enumCallback = syscall.NewCallback(enumProc)
)

func enumProc(hwnd uintptr, _ uintptr) uintptr {
	var owner uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&owner)))
	if owner == uint32(os.Getpid()) && win.IsWindowVisible(win.HWND(hwnd)) {
		enumFound = append(enumFound, hwnd)
	}
	return 1 // продолжаем перебор
}

func visibleOwnWindows() ([]uintptr, error) {
	if err := procEnumWindows.Find(); err != nil {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	enumMu.Lock()
	defer enumMu.Unlock()
	enumFound = nil
	procEnumWindows.Call(enumCallback, 0)
	found := enumFound
	enumFound = nil
	return found, nil
}

func hideWindow(hwnd uintptr) { win.ShowWindow(win.HWND(hwnd), win.SW_HIDE) }

func showWindow(hwnd uintptr) { win.ShowWindow(win.HWND(hwnd), win.SW_SHOW) }
