package state

// Mode is the drawing mode of a freehand stroke.
type Mode string

const (
	ModePen         Mode = "pen"
	ModeHighlighter Mode = "highlighter"
	ModeEraser      Mode = "eraser"
)

// Kind identifies the type of a page object.
type Kind string

const (
	KindRect    Kind = "rect"
	KindEllipse Kind = "ellipse"
	KindLine    Kind = "line"
	KindArrow   Kind = "arrow"
	KindText    Kind = "text"
	KindSticky  Kind = "sticky"
	KindImage   Kind = "image"
)

// IsShape reports whether k is drawn with the shapes tool.
func (k Kind) IsShape() bool {
	switch k {
	case KindRect, KindEllipse, KindLine, KindArrow:
		return true
	}
	return false
}

// Point is one pointer sample in logical board coordinates.
// T is milliseconds since the stroke started, P the pressure in [0, 1].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T float64 `json:"t"`
	P float64 `json:"p"`
}

// Stroke is a committed freehand stroke. Only the raw samples are kept;
// smoothing is recomputed whenever the stroke is drawn.
type Stroke struct {
	ID     string  `json:"id"`
	Mode   Mode    `json:"mode"`
	Color  string  `json:"color"`
	Size   float64 `json:"size"`
	Alpha  float64 `json:"alpha,omitempty"`
	Points []Point `json:"points"`
}

// Clone returns a copy of s that shares no memory with it.
func (s Stroke) Clone() Stroke {
	c := s
	c.Points = append([]Point(nil), s.Points...)
	return c
}

// Geometry is the placement of an object. For lines and arrows W and H are
// the signed delta from (X, Y) to the end point.
type Geometry struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Style holds the paint attributes of an object.
type Style struct {
	Stroke    string  `json:"stroke,omitempty"`
	Fill      string  `json:"fill,omitempty"`
	Width     float64 `json:"width,omitempty"`
	FontSize  float64 `json:"font_size,omitempty"`
	TextColor string  `json:"text_color,omitempty"`
}

// Object is a vector record on a page. Its z-order is its index in
// Page.Objects.
type Object struct {
	ID      string   `json:"id"`
	Kind    Kind     `json:"kind"`
	Name    string   `json:"name"`
	Geom    Geometry `json:"geom"`
	Style   Style    `json:"style"`
	Text    string   `json:"text,omitempty"`
	Image   []byte   `json:"image,omitempty"`
	Visible bool     `json:"visible"`
	Locked  bool     `json:"locked"`
}

// Clone returns a copy of o that shares no memory with it.
func (o Object) Clone() Object {
	c := o
	if o.Image != nil {
		c.Image = append([]byte(nil), o.Image...)
	}
	return c
}

// Background is an encoded raster image painted under a page's content.
type Background struct {
	Format string `json:"format"`
	Data   []byte `json:"data"`
}

// Clone returns a deep copy of b; a nil background stays nil.
func (b *Background) Clone() *Background {
	if b == nil {
		return nil
	}
	return &Background{Format: b.Format, Data: append([]byte(nil), b.Data...)}
}

// Page is one board page.
type Page struct {
	ID      string      `json:"id"`
	Strokes []Stroke    `json:"strokes"`
	Objects []Object    `json:"objects"`
	BG      *Background `json:"bg"`
}

// NewPage returns a blank page.
func NewPage() Page {
	return Page{ID: NewID(prefixPage), Strokes: []Stroke{}, Objects: []Object{}}
}

// Clone returns a structurally independent copy of p, ids included.
func (p Page) Clone() Page {
	c := Page{ID: p.ID, BG: p.BG.Clone()}
	c.Strokes = make([]Stroke, len(p.Strokes))
	for i, s := range p.Strokes {
		c.Strokes[i] = s.Clone()
	}
	c.Objects = make([]Object, len(p.Objects))
	for i, o := range p.Objects {
		c.Objects[i] = o.Clone()
	}
	return c
}

// Duplicate is Clone with fresh ids for the page and everything on it.
func (p Page) Duplicate() Page {
	c := p.Clone()
	c.ID = NewID(prefixPage)
	for i := range c.Strokes {
		c.Strokes[i].ID = NewID(prefixStroke)
	}
	for i := range c.Objects {
		c.Objects[i].ID = NewID(prefixObject)
	}
	return c
}

// ObjectIndex returns the index of the object with id, or -1.
func (p *Page) ObjectIndex(id string) int {
	for i := range p.Objects {
		if p.Objects[i].ID == id {
			return i
		}
	}
	return -1
}

// clonePages deep-copies a page list.
func clonePages(pages []Page) []Page {
	out := make([]Page, len(pages))
	for i, p := range pages {
		out[i] = p.Clone()
	}
	return out
}
