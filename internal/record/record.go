// Package record captures rendered board frames on a timer and packages
// them as an animated GIF.
package record

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// FileName is the default name of a saved recording.
const FileName = "smartboard_recording.gif"

var (
	ErrNotRecording     = errors.New("not recording")
	ErrAlreadyRecording = errors.New("already recording")
	ErrNoFrames         = errors.New("no frames captured")
)

// FrameSource yields the latest rendered frame. Frame is called from the
// recorder's goroutine and must be safe for concurrent use.
type FrameSource interface {
	Frame() image.Image
}

// SourceFunc adapts a function to FrameSource.
type SourceFunc func() image.Image

// Frame calls f.
func (f SourceFunc) Frame() image.Image { return f() }

// Options configures a Recorder.
type Options struct {
	FPS       int
	MaxFrames int
	Logger    *log.Logger
}

const (
	defaultFPS       = 10
	defaultMaxFrames = 600
)

// Recorder captures frames between Start and Stop.
type Recorder struct {
	fps       int
	maxFrames int
	log       *log.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	bounds  image.Rectangle
	frames  []*image.Paletted
}

// New returns an idle recorder.
func New(opts Options) *Recorder {
	if opts.FPS <= 0 || opts.FPS > 50 {
		opts.FPS = defaultFPS
	}
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = defaultMaxFrames
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Recorder{fps: opts.FPS, maxFrames: opts.MaxFrames, log: opts.Logger.WithPrefix("record")}
}

// Recording reports whether capture is running.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Frames returns how many frames have been captured so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Start begins capturing from src until Stop is called or ctx is done.
func (r *Recorder) Start(ctx context.Context, src FrameSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrAlreadyRecording
	}
	ctx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})
	r.frames = nil
	r.bounds = image.Rectangle{}
	go r.loop(ctx, src, r.done)
	r.log.Info("recording started", "fps", r.fps)
	return nil
}

func (r *Recorder) loop(ctx context.Context, src FrameSource, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(time.Second / time.Duration(r.fps))
	defer ticker.Stop()
	r.capture(src)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.capture(src) {
				r.log.Warn("frame limit reached", "frames", r.maxFrames)
				return
			}
		}
	}
}

// capture appends one frame and reports whether there is room for more.
func (r *Recorder) capture(src FrameSource) bool {
	img := src.Frame()
	if img == nil || img.Bounds().Empty() {
		return true
	}
	r.mu.Lock()
	if r.bounds.Empty() {
		r.bounds = img.Bounds()
	}
	bounds := r.bounds
	r.mu.Unlock()

	pm := image.NewPaletted(bounds, palette.Plan9)
	draw.FloydSteinberg.Draw(pm, bounds, img, bounds.Min)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, pm)
	return len(r.frames) < r.maxFrames
}

// Stop ends capture and returns the recording.
func (r *Recorder) Stop() (*gif.GIF, error) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	r.cancel()
	done := r.done
	r.mu.Unlock()
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	frames := r.frames
	r.frames = nil
	r.log.Info("recording stopped", "frames", len(frames))
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	delay := 100 / r.fps
	g := &gif.GIF{
		Image: frames,
		Delay: make([]int, len(frames)),
		Config: image.Config{
			ColorModel: frames[0].Palette,
			Width:      r.bounds.Dx(),
			Height:     r.bounds.Dy(),
		},
	}
	for i := range g.Delay {
		g.Delay[i] = delay
	}
	return g, nil
}

// WriteGIF encodes a recording.
func WriteGIF(w io.Writer, g *gif.GIF) error {
	if err := gif.EncodeAll(w, g); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	return nil
}
