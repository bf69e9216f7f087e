//go:build !windows

package overlay

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

// nativeSetter reports click-through as unsupported. GLFW 3.3 has no mouse
// pass-through hint outside Win32.
func nativeSetter(w *glfw.Window) Setter {
	return SetterFunc(func(enabled bool) error {
		if !enabled {
			return nil
		}
		return ErrClickThroughUnsupported
	})
}
