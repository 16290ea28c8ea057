package ui

import (
	"context"
	"time"
)

const (
	LoadingInterval = 300 * time.Millisecond

	loadingDots   = 3
	loadingFrames = loadingDots + 1
)

// Frame is one step of a loading indicator. Count runs 0..3; dot i is
// visible when i <= Count.
type Frame struct {
	Count int                `json:"count"`
	Dots  [loadingDots]Phase `json:"dots"`
}

func FrameAt(count int) Frame {
	count = ((count % loadingFrames) + loadingFrames) % loadingFrames
	f := Frame{Count: count}
	for i := range f.Dots {
		if i <= count {
			f.Dots[i] = PhaseVisible
		}
	}
	return f
}

// Lines maps the frame onto the line loader styles.
func (f Frame) Lines() [loadingDots]LineStyle {
	var out [loadingDots]LineStyle
	for i, p := range f.Dots {
		out[i] = LineVariant(p)
	}
	return out
}

// Stars maps the frame onto the star loader styles.
func (f Frame) Stars() [loadingDots]StarStyle {
	var out [loadingDots]StarStyle
	for i, p := range f.Dots {
		out[i] = StarVariant(p)
	}
	return out
}

// Loading is a frame resolved against both loader styles, as sent to the browser.
type Loading struct {
	Frame
	Lines [loadingDots]LineStyle `json:"lines"`
	Stars [loadingDots]StarStyle `json:"stars"`
}

// LoadingEvent wraps a frame for the event stream.
func LoadingEvent(f Frame) Event {
	return Event{Type: EventLoading, Loading: &Loading{Frame: f, Lines: f.Lines(), Stars: f.Stars()}}
}

// Loader drives a loading indicator.
type Loader struct {
	Interval time.Duration
}

// Run emits the first frame immediately and a new frame every interval while
// loading returns true. It returns as soon as loading reports false or ctx
// is done.
func (l Loader) Run(ctx context.Context, loading func() bool, emit func(Frame)) {
	interval := l.Interval
	if interval <= 0 {
		interval = LoadingInterval
	}
	if !loading() {
		return
	}

	count := 0
	emit(FrameAt(count))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !loading() {
				return
			}
			count = (count + 1) % loadingFrames
			emit(FrameAt(count))
		}
	}
}
