// Package diagram renders a layout as a document: a draw.io mxfile with one
// page, or a Mermaid erDiagram.
package diagram

import (
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"sqlerd/internal/layout"
)

const (
	rowHeight  = 30
	titleSize  = 30
	pageMargin = 40
)

// Document is a draw.io mxfile.
type Document struct {
	XMLName  xml.Name  `xml:"mxfile"`
	Host     string    `xml:"host,attr"`
	Diagrams []Diagram `xml:"diagram"`
}

// Diagram is one page of the file.
type Diagram struct {
	ID    string     `xml:"id,attr"`
	Name  string     `xml:"name,attr"`
	Model GraphModel `xml:"mxGraphModel"`
}

type GraphModel struct {
	Dx         int  `xml:"dx,attr"`
	Dy         int  `xml:"dy,attr"`
	Grid       int  `xml:"grid,attr"`
	GridSize   int  `xml:"gridSize,attr"`
	Guides     int  `xml:"guides,attr"`
	Tooltips   int  `xml:"tooltips,attr"`
	Connect    int  `xml:"connect,attr"`
	Arrows     int  `xml:"arrows,attr"`
	Fold       int  `xml:"fold,attr"`
	Page       int  `xml:"page,attr"`
	PageScale  int  `xml:"pageScale,attr"`
	PageWidth  int  `xml:"pageWidth,attr"`
	PageHeight int  `xml:"pageHeight,attr"`
	Math       int  `xml:"math,attr"`
	Shadow     int  `xml:"shadow,attr"`
	Root       Root `xml:"root"`
}

type Root struct {
	Cells []Cell `xml:"mxCell"`
}

// Cell is a vertex or an edge. Vertices carry Vertex="1", edges Edge="1".
type Cell struct {
	ID       string    `xml:"id,attr"`
	Value    *string   `xml:"value,attr"`
	Style    string    `xml:"style,attr,omitempty"`
	Vertex   string    `xml:"vertex,attr,omitempty"`
	Edge     string    `xml:"edge,attr,omitempty"`
	Parent   string    `xml:"parent,attr,omitempty"`
	Source   string    `xml:"source,attr,omitempty"`
	Target   string    `xml:"target,attr,omitempty"`
	Geometry *Geometry `xml:"mxGeometry"`
}

type Geometry struct {
	X        int    `xml:"x,attr,omitempty"`
	Y        int    `xml:"y,attr,omitempty"`
	Width    int    `xml:"width,attr,omitempty"`
	Height   int    `xml:"height,attr,omitempty"`
	Relative string `xml:"relative,attr,omitempty"`
	As       string `xml:"as,attr"`
}

// Options controls document metadata.
type Options struct {
	// PageName names the single page; defaults to "Page-1".
	PageName string
	// Host is written to the mxfile host attribute; defaults to "sqlerd".
	Host string
}

// Page returns the single page of the document.
func (d *Document) Page() *Diagram {
	if len(d.Diagrams) == 0 {
		return nil
	}
	return &d.Diagrams[0]
}

// Vertices returns the vertex cells of the page in document order.
func (d *Document) Vertices() []Cell {
	return d.cells(func(c Cell) bool { return c.Vertex == "1" })
}

// Edges returns the edge cells of the page in document order.
func (d *Document) Edges() []Cell {
	return d.cells(func(c Cell) bool { return c.Edge == "1" })
}

func (d *Document) cells(keep func(Cell) bool) []Cell {
	p := d.Page()
	if p == nil {
		return nil
	}
	var out []Cell
	for _, c := range p.Model.Root.Cells {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Encode writes the document as indented XML.
func (d *Document) Encode(w io.Writer) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode drawio document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode drawio document: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// String returns the encoded document.
func (d *Document) String() string {
	var b strings.Builder
	_ = d.Encode(&b)
	return b.String()
}

type emitter struct {
	next  int
	cells []Cell
	// body cell id per entity index; edges connect bodies.
	bodies map[int]string
}

func (e *emitter) id() string {
	id := strconv.Itoa(e.next)
	e.next++
	return id
}

func (e *emitter) add(c Cell) string {
	c.ID = e.id()
	e.cells = append(e.cells, c)
	return c.ID
}

func strPtr(s string) *string { return &s }

// Emit renders a layout as a one-page draw.io document. Entities are written
// in visiting order, followed by the relations in the order they were
// connected. Cell ids are sequential, so identical layouts give identical
// documents.
func Emit(l *layout.Layout, opts Options) *Document {
	if opts.PageName == "" {
		opts.PageName = "Page-1"
	}
	if opts.Host == "" {
		opts.Host = "sqlerd"
	}

	e := &emitter{bodies: make(map[int]string, len(l.Entities))}
	e.add(Cell{})
	e.add(Cell{Parent: "0"})

	width, height := 0, 0
	for _, ent := range l.InOrder() {
		e.entity(ent)
		width = max(width, ent.X+ent.Width)
		height = max(height, ent.Y+ent.Height)
	}
	for _, r := range l.Relations {
		e.relation(r)
	}

	model := GraphModel{
		Dx: width + pageMargin, Dy: height + pageMargin,
		Grid: 1, GridSize: 10, Guides: 1, Tooltips: 1, Connect: 1, Arrows: 1, Fold: 1,
		Page: 1, PageScale: 1,
		PageWidth:  max(width+pageMargin, 850),
		PageHeight: max(height+pageMargin, 1100),
		Root:       Root{Cells: e.cells},
	}
	return &Document{
		Host: opts.Host,
		Diagrams: []Diagram{{
			ID:    diagramID(opts.PageName, model),
			Name:  opts.PageName,
			Model: model,
		}},
	}
}

// diagramID derives a stable page id from the page content.
func diagramID(name string, model GraphModel) string {
	content, _ := xml.Marshal(model)
	return uuid.NewSHA1(uuid.NameSpaceOID, append([]byte(name+"\x00"), content...)).String()
}

// entity writes the title, the body holding the primary-key columns in its
// header, and one row per remaining column.
func (e *emitter) entity(ent *layout.Entity) {
	title := e.add(Cell{
		Value:    strPtr(html.EscapeString(ent.Name)),
		Style:    titleStyle().String(),
		Vertex:   "1",
		Parent:   "1",
		Geometry: &Geometry{X: ent.X, Y: ent.Y, Width: ent.Width, Height: titleSize, As: "geometry"},
	})

	attrs := slices.Clone(ent.Attributes)
	slices.SortStableFunc(attrs, func(a, b layout.Attribute) int {
		switch {
		case a.Primary == b.Primary:
			return 0
		case a.Primary:
			return -1
		default:
			return 1
		}
	})

	var header []string
	startSize := rowHeight
	bodyHeight := rowHeight
	var rows []layout.Attribute
	for _, a := range attrs {
		if !a.Primary {
			rows = append(rows, a)
			continue
		}
		if len(header) > 0 {
			startSize += rowHeight
			bodyHeight += rowHeight
		}
		header = append(header, "&nbsp;"+attributeLabel(a))
	}
	bodyHeight += rowHeight * len(rows)
	if len(rows) == 0 {
		bodyHeight += rowHeight
	}

	body := e.add(Cell{
		Value:    strPtr(strings.Join(header, "<br><br>")),
		Style:    bodyStyle(ent.Dependent, startSize).String(),
		Vertex:   "1",
		Parent:   title,
		Geometry: &Geometry{X: 0, Y: titleSize, Width: ent.Width, Height: bodyHeight, As: "geometry"},
	})
	e.bodies[ent.Index] = body

	y := startSize
	for _, a := range rows {
		e.add(Cell{
			Value:    strPtr(attributeLabel(a)),
			Style:    rowStyle().String(),
			Vertex:   "1",
			Parent:   body,
			Geometry: &Geometry{X: 0, Y: y, Width: ent.Width, Height: rowHeight, As: "geometry"},
		})
		y += rowHeight
	}
}

func attributeLabel(a layout.Attribute) string {
	name := html.EscapeString(a.Name)
	if a.Foreign {
		name += " (FK)"
	}
	return name
}

// relation writes an edge from the parent body to the child body. The exit
// point lies on the parent, the entry point on the child.
func (e *emitter) relation(r *layout.Relation) {
	e.add(Cell{
		Value: strPtr(html.EscapeString(r.Label)),
		Style: edgeStyle(!r.Identifying,
			r.ParentPoint.X, r.ParentPoint.Y,
			r.ChildPoint.X, r.ChildPoint.Y).String(),
		Edge:     "1",
		Parent:   "1",
		Source:   e.bodies[r.Parent],
		Target:   e.bodies[r.Child],
		Geometry: &Geometry{Relative: "1", As: "geometry"},
	})
}
