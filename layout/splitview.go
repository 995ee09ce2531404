// Package layout holds the two-pane split view used by the document viewer.
package layout

import "fmt"

// Default split bounds, in percent of the container width.
const (
	DefaultMinLeftWidth = 20.0
	DefaultMaxLeftWidth = 80.0
	DefaultLeftWidth    = 50.0
)

// Collapse tells which pane is hidden
type Collapse string

const (
	CollapseNone  Collapse = ""
	CollapseLeft  Collapse = "left"
	CollapseRight Collapse = "right"
)

// SplitView is a two-pane split. While not collapsed the left width stays in
// [MinLeftWidth, MaxLeftWidth].
type SplitView struct {
	MinLeftWidth float64  `json:"min_left_width"`
	MaxLeftWidth float64  `json:"max_left_width"`
	LeftWidth    float64  `json:"left_width"`
	Collapsed    Collapse `json:"collapsed,omitempty"`
	// Restore is the width to return to when the collapse is toggled off
	Restore float64 `json:"restore_width,omitempty"`
}

// NewSplitView validates the bounds and clamps the initial width.
func NewSplitView(minLeft, maxLeft, left float64) (*SplitView, error) {
	if minLeft < 0 || maxLeft > 100 || minLeft > maxLeft {
		return nil, fmt.Errorf("invalid split bounds [%g, %g]", minLeft, maxLeft)
	}
	v := &SplitView{MinLeftWidth: minLeft, MaxLeftWidth: maxLeft}
	v.LeftWidth = v.clamp(left)
	return v, nil
}

// DefaultSplitView returns a 50/50 split with 20/80 bounds.
func DefaultSplitView() *SplitView {
	return &SplitView{
		MinLeftWidth: DefaultMinLeftWidth,
		MaxLeftWidth: DefaultMaxLeftWidth,
		LeftWidth:    DefaultLeftWidth,
	}
}

// SetLeftWidth sets the left width, clamped. It expands a collapsed view.
func (v *SplitView) SetLeftWidth(pct float64) {
	v.Collapsed = CollapseNone
	v.Restore = 0
	v.LeftWidth = v.clamp(pct)
}

// DragTo moves the divider to offset pixels inside a container of the given
// width. A non-positive container width is ignored.
func (v *SplitView) DragTo(offset, containerWidth float64) {
	if containerWidth <= 0 {
		return
	}
	v.SetLeftWidth(offset / containerWidth * 100)
}

// ToggleLeft collapses the left pane, or restores the previous width when it
// is already collapsed.
func (v *SplitView) ToggleLeft() {
	v.toggle(CollapseLeft)
}

// ToggleRight collapses the right pane, or restores the previous width when
// it is already collapsed.
func (v *SplitView) ToggleRight() {
	v.toggle(CollapseRight)
}

func (v *SplitView) toggle(side Collapse) {
	if v.Collapsed == side {
		v.LeftWidth = v.clamp(v.Restore)
		v.Collapsed = CollapseNone
		v.Restore = 0
		return
	}
	if v.Collapsed == CollapseNone {
		v.Restore = v.LeftWidth
	}
	v.Collapsed = side
	if side == CollapseLeft {
		v.LeftWidth = 0
	} else {
		v.LeftWidth = 100
	}
}

// Widths returns the left and right pane widths in percent.
func (v *SplitView) Widths() (left, right float64) {
	return v.LeftWidth, 100 - v.LeftWidth
}

func (v *SplitView) clamp(pct float64) float64 {
	if pct < v.MinLeftWidth {
		return v.MinLeftWidth
	}
	if pct > v.MaxLeftWidth {
		return v.MaxLeftWidth
	}
	return pct
}
