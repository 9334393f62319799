package state

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/charmbracelet/log"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes any registered raster format.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Loader decodes images off the owner goroutine and hands results back to
// it through post. Load and the completion run on the owner goroutine, so
// the ticket table needs no lock.
//
// A completion is applied only when it carries the newest ticket for its
// key and its validity check still holds, so a slow decode can never
// overwrite the result of a later request or land on a page that is no
// longer current.
type Loader struct {
	post    func(func())
	decode  func([]byte) (image.Image, error)
	tickets map[string]uint64
	seq     uint64
	log     *log.Logger
}

// NewLoader returns a loader. With a nil post, decoding happens inline.
func NewLoader(post func(func()), logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{
		post:    post,
		decode:  DecodeImage,
		tickets: make(map[string]uint64),
		log:     logger.WithPrefix("loader"),
	}
}

// Load decodes data for key and calls apply with the result unless a newer
// request for key was made or valid reports false by then. Decode failures
// drop the request.
func (l *Loader) Load(key string, data []byte, valid func() bool, apply func(image.Image)) {
	l.seq++
	ticket := l.seq
	l.tickets[key] = ticket

	finish := func(img image.Image, err error) {
		if l.tickets[key] != ticket {
			l.log.Debug("discarding superseded decode", "key", key, "ticket", ticket)
			return
		}
		delete(l.tickets, key)
		if err != nil {
			l.log.Warn("image dropped", "key", key, "err", err)
			return
		}
		if valid != nil && !valid() {
			l.log.Debug("discarding stale decode", "key", key)
			return
		}
		apply(img)
	}

	if l.post == nil {
		finish(l.decode(data))
		return
	}
	go func() {
		img, err := l.decode(data)
		l.post(func() { finish(img, err) })
	}()
}

// Pending reports whether a request for key is in flight.
func (l *Loader) Pending(key string) bool {
	_, ok := l.tickets[key]
	return ok
}
