//go:build !windows

package window

// Вне Windows процесс не держит собственных окон верхнего уровня.
func visibleOwnWindows() ([]uintptr, error) { return nil, nil }

func hideWindow(uintptr) {}

func showWindow(uintptr) {}
