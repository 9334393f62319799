package record

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func solid(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func waitFrames(t *testing.T, r *Recorder, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for r.Frames() < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d frames after 5s", r.Frames())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRecorderCapturesGIF(t *testing.T) {
	r := New(Options{FPS: 50, Logger: log.New(io.Discard)})
	var calls atomic.Int32
	src := SourceFunc(func() image.Image {
		if calls.Add(1)%2 == 0 {
			return solid(color.White)
		}
		return solid(color.Black)
	})
	if err := r.Start(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	if err := r.Start(context.Background(), src); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start err = %v", err)
	}
	waitFrames(t, r, 3)

	g, err := r.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if r.Recording() {
		t.Error("still recording after Stop")
	}
	if len(g.Image) < 3 || g.Delay[0] != 2 {
		t.Errorf("frames=%d delay=%d", len(g.Image), g.Delay[0])
	}

	var buf bytes.Buffer
	if err := WriteGIF(&buf, g); err != nil {
		t.Fatal(err)
	}
	back, err := gif.DecodeAll(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if back.Config.Width != 16 || back.Config.Height != 8 {
		t.Errorf("gif size = %dx%d", back.Config.Width, back.Config.Height)
	}
}

func TestRecorderMaxFrames(t *testing.T) {
	r := New(Options{FPS: 50, MaxFrames: 2, Logger: log.New(io.Discard)})
	if err := r.Start(context.Background(), SourceFunc(func() image.Image { return solid(color.White) })); err != nil {
		t.Fatal(err)
	}
	waitFrames(t, r, 2)
	time.Sleep(60 * time.Millisecond)
	g, err := r.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Image) != 2 {
		t.Errorf("frames = %d, want 2", len(g.Image))
	}
}

func TestRecorderStopWithoutStart(t *testing.T) {
	r := New(Options{Logger: log.New(io.Discard)})
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Stop err = %v", err)
	}
}

func TestRecorderContextCancel(t *testing.T) {
	r := New(Options{FPS: 50, Logger: log.New(io.Discard)})
	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Start(ctx, SourceFunc(func() image.Image { return solid(color.White) })); err != nil {
		t.Fatal(err)
	}
	waitFrames(t, r, 1)
	cancel()
	g, err := r.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Image) == 0 {
		t.Error("frames captured before cancel were lost")
	}
}

func TestRecorderEmptySource(t *testing.T) {
	r := New(Options{FPS: 50, Logger: log.New(io.Discard)})
	if err := r.Start(context.Background(), SourceFunc(func() image.Image { return nil })); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := r.Stop(); !errors.Is(err, ErrNoFrames) {
		t.Errorf("Stop err = %v, want ErrNoFrames", err)
	}
}
