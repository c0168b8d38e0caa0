package treeview

import (
	"io"
	"time"

	"forktrace/internal/proctree"
)

// DefaultRedrawInterval is the minimum gap between live redraws. Event
// bursts (a shell script forking in a loop) would otherwise turn every
// mutation into a full-screen repaint.
const DefaultRedrawInterval = 100 * time.Millisecond

// clearScreen homes the cursor and erases the display; each redraw
// fully replaces the previous frame.
const clearScreen = "\x1b[H\x1b[2J"

// LiveView re-renders the whole tree on demand, throttled to one
// redraw per interval. Flush bypasses the throttle for the final dump.
type LiveView struct {
	w        io.Writer
	minGap   time.Duration
	lastDraw time.Time
	now      func() time.Time
}

// NewLiveView returns a live view writing full frames to w.
func NewLiveView(w io.Writer) *LiveView {
	return &LiveView{
		w:      w,
		minGap: DefaultRedrawInterval,
		now:    time.Now,
	}
}

// Refresh redraws the tree unless the previous redraw was too recent.
func (v *LiveView) Refresh(t *proctree.Tree) error {
	if !v.lastDraw.IsZero() && v.now().Sub(v.lastDraw) < v.minGap {
		return nil
	}
	return v.draw(t)
}

// Flush redraws unconditionally.
func (v *LiveView) Flush(t *proctree.Tree) error {
	return v.draw(t)
}

func (v *LiveView) draw(t *proctree.Tree) error {
	if _, err := io.WriteString(v.w, clearScreen); err != nil {
		return err
	}
	v.lastDraw = v.now()
	return Write(v.w, t)
}
