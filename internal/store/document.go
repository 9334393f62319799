// Package store reads and writes board documents.
//
// A document is {"version": 1, "pages": [...]}. Pages are either vector
// records or raster snapshots carried as a data URL; raster snapshots are
// imported as the page background.
package store

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"SmartBoard/internal/state"
)

// Version is the document version written by Encode.
const Version = 1

// ErrCorrupt wraps every problem Decode recovers from.
var ErrCorrupt = errors.New("corrupt document")

// Format is a document serialisation.
type Format int

const (
	FormatJSON Format = iota
	FormatCBOR
)

func (f Format) String() string {
	if f == FormatCBOR {
		return "cbor"
	}
	return "json"
}

// FormatFor picks the format from a file extension: ".sbd" is CBOR,
// everything else JSON.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".sbd") {
		return FormatCBOR
	}
	return FormatJSON
}

// Document is the persisted form of a board.
type Document struct {
	Version int          `json:"version"`
	Current int          `json:"current,omitempty"`
	Pages   []state.Page `json:"pages"`
}

// New wraps pages into a document of the current version.
func New(pages []state.Page, current int) Document {
	return Document{Version: Version, Current: current, Pages: pages}
}

// Blank returns a document holding one empty page.
func Blank() Document { return New([]state.Page{state.NewPage()}, 0) }

// wirePage accepts both page forms.
type wirePage struct {
	ID       string            `json:"id"`
	Strokes  []state.Stroke    `json:"strokes"`
	Objects  []state.Object    `json:"objects"`
	BG       *state.Background `json:"bg"`
	Snapshot string            `json:"snapshot,omitempty"`
}

type wireDoc struct {
	Version int        `json:"version"`
	Current int        `json:"current"`
	Pages   []wirePage `json:"pages"`
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	cborDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Encode serialises doc.
func Encode(doc Document, f Format) ([]byte, error) {
	if doc.Version == 0 {
		doc.Version = Version
	}
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatCBOR:
		data, err = cborEnc.Marshal(doc)
	default:
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s document: %w", f, err)
	}
	return data, nil
}

// Decode parses data. The returned document is always usable: empty or
// unreadable input yields a single blank page, and broken pages are
// replaced by blank ones. The error, wrapping ErrCorrupt, describes what
// was recovered from and is meant to be logged as a warning.
func Decode(data []byte, f Format) (Document, error) {
	if len(data) == 0 {
		return Blank(), fmt.Errorf("%w: empty input", ErrCorrupt)
	}
	var w wireDoc
	var err error
	switch f {
	case FormatCBOR:
		err = cborDec.Unmarshal(data, &w)
	default:
		err = json.Unmarshal(data, &w)
	}
	if err != nil {
		return Blank(), fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(w.Pages) == 0 {
		return Blank(), fmt.Errorf("%w: no pages", ErrCorrupt)
	}

	var problems []error
	doc := Document{Version: Version, Pages: make([]state.Page, 0, len(w.Pages))}
	for i, wp := range w.Pages {
		p, err := wp.page()
		if err != nil {
			problems = append(problems, fmt.Errorf("page %d: %w", i+1, err))
		}
		doc.Pages = append(doc.Pages, p)
	}
	if w.Current >= 0 && w.Current < len(doc.Pages) {
		doc.Current = w.Current
	}
	if w.Version > Version {
		problems = append(problems, fmt.Errorf("version %d is newer than %d", w.Version, Version))
	}
	if len(problems) > 0 {
		return doc, fmt.Errorf("%w: %w", ErrCorrupt, errors.Join(problems...))
	}
	return doc, nil
}

func (wp wirePage) page() (state.Page, error) {
	p := state.Page{ID: wp.ID, Strokes: wp.Strokes, Objects: wp.Objects, BG: wp.BG}
	if p.ID == "" {
		p.ID = state.NewPage().ID
	}
	if p.Strokes == nil {
		p.Strokes = []state.Stroke{}
	}
	if p.Objects == nil {
		p.Objects = []state.Object{}
	}
	for i := range p.Strokes {
		switch p.Strokes[i].Mode {
		case state.ModePen, state.ModeHighlighter, state.ModeEraser:
		default:
			p.Strokes[i].Mode = state.ModePen
		}
	}
	if wp.Snapshot != "" && p.BG == nil {
		bg, err := ParseDataURL(wp.Snapshot)
		if err != nil {
			return p, err
		}
		p.BG = bg
	}
	return p, nil
}

// ParseDataURL decodes a base64 "data:image/<fmt>;base64,..." URL.
func ParseDataURL(u string) (*state.Background, error) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return nil, fmt.Errorf("snapshot is not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("snapshot is not base64 encoded")
	}
	mime := strings.TrimSuffix(meta, ";base64")
	format, ok := strings.CutPrefix(mime, "image/")
	if !ok || format == "" {
		return nil, fmt.Errorf("snapshot has unsupported type %q", mime)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("snapshot payload: %w", err)
	}
	return &state.Background{Format: format, Data: data}, nil
}

// DataURL encodes a background as a data URL.
func DataURL(bg *state.Background) string {
	return "data:image/" + bg.Format + ";base64," + base64.StdEncoding.EncodeToString(bg.Data)
}
