//go:build windows

package overlay

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"golang.org/x/sys/windows"
)

const (
	gwlExStyle      = ^uintptr(19) // GWL_EXSTYLE (-20)
	wsExLayered     = 0x00080000
	wsExTransparent = 0x00000020
)

var (
	user32            = windows.NewLazySystemDLL("user32.dll")
	procGetWindowLong = user32.NewProc("GetWindowLongW")
	procSetWindowLong = user32.NewProc("SetWindowLongW")
)

// nativeSetter toggles WS_EX_TRANSPARENT on the window. WS_EX_LAYERED is
// always kept so the transparent framebuffer composites.
func nativeSetter(w *glfw.Window) Setter {
	hwnd := windows.HWND(uintptr(unsafe.Pointer(w.GetWin32Window())))
	return SetterFunc(func(enabled bool) error {
		style, _, err := procGetWindowLong.Call(uintptr(hwnd), gwlExStyle)
		if style == 0 && err != windows.ERROR_SUCCESS {
			return fmt.Errorf("GetWindowLongW: %w", err)
		}
		style = exStyle(uint32(style), enabled)
		if r, _, err := procSetWindowLong.Call(uintptr(hwnd), gwlExStyle, style); r == 0 && err != windows.ERROR_SUCCESS {
			return fmt.Errorf("SetWindowLongW: %w", err)
		}
		return nil
	})
}

func exStyle(style uint32, clickThrough bool) uintptr {
	style |= wsExLayered
	if clickThrough {
		style |= wsExTransparent
	} else {
		style &^= wsExTransparent
	}
	return uintptr(style)
}
