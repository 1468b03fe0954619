package diagram

import (
	"strconv"
	"strings"
)

// style is an ordered draw.io style string: "key=value;" pairs in insertion
// order, optionally preceded by bare shape names.
type style struct {
	keys   []string
	values map[string]string
}

func newStyle(shapes ...string) *style {
	return &style{keys: shapes, values: map[string]string{}}
}

func (s *style) set(key, value string) *style {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
	return s
}

func (s *style) setInt(key string, v int) *style {
	return s.set(key, strconv.Itoa(v))
}

func (s *style) setFloat(key string, v float64) *style {
	return s.set(key, strconv.FormatFloat(v, 'f', -1, 64))
}

func (s *style) setBool(key string, v bool) *style {
	if v {
		return s.set(key, "1")
	}
	return s.set(key, "0")
}

func (s *style) String() string {
	var b strings.Builder
	for _, k := range s.keys {
		b.WriteString(k)
		if v, ok := s.values[k]; ok {
			b.WriteByte('=')
			b.WriteString(v)
		}
		b.WriteByte(';')
	}
	return b.String()
}

func titleStyle() *style {
	return newStyle("text").
		set("html", "1").
		set("align", "center").
		set("verticalAlign", "middle").
		set("whiteSpace", "wrap").
		setInt("fontStyle", 1)
}

func bodyStyle(rounded bool, startSize int) *style {
	return newStyle("swimlane").
		setInt("fontStyle", 0).
		set("childLayout", "stackLayout").
		setBool("horizontal", true).
		setInt("startSize", startSize).
		setBool("horizontalStack", false).
		setBool("resizeParent", true).
		setBool("resizeParentMax", false).
		setBool("resizeLast", false).
		setBool("collapsible", false).
		setInt("marginBottom", 0).
		set("html", "1").
		set("align", "left").
		setInt("spacingLeft", 4).
		setBool("rounded", rounded).
		set("whiteSpace", "wrap")
}

func rowStyle() *style {
	return newStyle("text").
		set("strokeColor", "none").
		set("fillColor", "none").
		set("align", "left").
		set("verticalAlign", "middle").
		setInt("spacingLeft", 4).
		setInt("spacingRight", 4).
		set("overflow", "hidden").
		setBool("rotatable", false).
		set("points", "[[0,0.5],[1,0.5]]").
		set("portConstraint", "eastwest").
		set("html", "1").
		set("whiteSpace", "wrap")
}

func edgeStyle(dashed bool, exitX, exitY, entryX, entryY float64) *style {
	s := newStyle().
		set("edgeStyle", "orthogonalEdgeStyle").
		setBool("rounded", false).
		set("html", "1").
		setFloat("exitX", exitX).
		setFloat("exitY", exitY).
		setBool("exitDx", false).
		setBool("exitDy", false).
		setFloat("entryX", entryX).
		setFloat("entryY", entryY).
		setBool("entryDx", false).
		setBool("entryDy", false).
		set("startArrow", "none").
		set("endArrow", "oval").
		setBool("endFill", true).
		setInt("endSize", 10).
		setInt("strokeWidth", 2).
		setInt("fontStyle", 1).
		set("labelBackgroundColor", "default")
	if dashed {
		s.setBool("dashed", true).set("dashPattern", "1 2")
	}
	return s
}
