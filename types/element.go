package types

// Rect is an element's on-screen bounds.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the middle of the rectangle.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Element is what the focus collaborator knows about an accessible element.
type Element struct {
	Ref    ElementRef `json:"ref"`
	Label  string     `json:"label,omitempty"`
	Bounds Rect       `json:"bounds"`
}
