package overlay

// Rect is a screen rectangle in pixels.
type Rect struct {
	X, Y, W, H int
}

// Place returns the top-left corner for a w×h window anchored at position
// inside area, inset by the margins. Unknown positions fall back to (20, 20).
func Place(position string, area Rect, w, h, mx, my int) (x, y int) {
	left, top := area.X, area.Y
	right, bottom := area.X+area.W, area.Y+area.H

	switch position {
	case "bottom_right":
		return right - w - mx, bottom - h - my
	case "bottom_left":
		return left + mx, bottom - h - my
	case "top_right":
		return right - w - mx, top + my
	case "top_left":
		return left + mx, top + my
	}
	return 20, 20
}
