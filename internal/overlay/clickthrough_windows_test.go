//go:build windows

package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExStyle(t *testing.T) {
	const topmost = 0x00000008

	on := exStyle(topmost, true)
	assert.Equal(t, uintptr(topmost|wsExLayered|wsExTransparent), on)

	off := exStyle(uint32(on), false)
	assert.Equal(t, uintptr(topmost|wsExLayered), off)

	assert.Equal(t, off, exStyle(uint32(off), false))
}
