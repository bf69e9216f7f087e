package overlay

// Drag tracks a left-button drag of the overlay. Coordinates are screen
// pixels; the cursor position is relative to the window's top-left corner.
type Drag struct {
	active     bool
	offX, offY int
}

// Press starts a drag at cursor position (cx, cy) inside the window. It is
// ignored while click-through is on.
func (d *Drag) Press(cx, cy int, clickThrough bool) {
	if clickThrough {
		return
	}
	d.active = true
	d.offX, d.offY = cx, cy
}

// Move returns the new window position for a cursor at (cx, cy) inside a
// window whose top-left is (winX, winY). ok is false when no drag is active.
func (d *Drag) Move(winX, winY, cx, cy int) (x, y int, ok bool) {
	if !d.active {
		return 0, 0, false
	}
	return winX + cx - d.offX, winY + cy - d.offY, true
}

// Release ends the drag.
func (d *Drag) Release() {
	d.active = false
}

// Active reports whether a drag is in progress.
func (d *Drag) Active() bool {
	return d.active
}
