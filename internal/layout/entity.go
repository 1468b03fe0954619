package layout

import "fmt"

// Side is one side of an entity box.
type Side int

const (
	SideTop Side = iota
	SideRight
	SideBottom
	SideLeft
)

var sideNames = [...]string{"top", "right", "bottom", "left"}

func (s Side) String() string {
	if s < SideTop || s > SideLeft {
		return fmt.Sprintf("Side(%d)", int(s))
	}
	return sideNames[s]
}

// Point is a connection point as fractions of the box width and height.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Attribute is one column as shown inside an entity.
type Attribute struct {
	Column  string `json:"column"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Primary bool   `json:"primary"`
	Foreign bool   `json:"foreign"`
}

// Entity is the diagram box derived from one table.
type Entity struct {
	Index      int         `json:"index"`
	Table      string      `json:"table"`
	Name       string      `json:"name"`
	Attributes []Attribute `json:"attributes"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Cell       Cell        `json:"cell"`
	X          int         `json:"x"`
	Y          int         `json:"y"`
	Dependent  bool        `json:"dependent"`

	used [4]int
}

// Capacity returns how many connection points a side offers: one on top and
// bottom, one per column on the left and right.
func (e *Entity) Capacity(side Side) int {
	switch side {
	case SideTop, SideBottom:
		return 1
	case SideLeft, SideRight:
		return len(e.Attributes)
	default:
		return 0
	}
}

// Available returns how many points are still free on a side.
func (e *Entity) Available(side Side) int {
	if side < SideTop || side > SideLeft {
		return 0
	}
	return e.Capacity(side) - e.used[side]
}

// Allocate hands out the next free point on a side. Top and bottom return
// their midpoint once; the i-th point on the left or right of k sits at
// (i+1)/(k+1) of the height. ok is false once the side is full. Points are
// never released.
func (e *Entity) Allocate(side Side) (p Point, ok bool) {
	if e.Available(side) <= 0 {
		return Point{}, false
	}
	i := e.used[side]
	e.used[side]++
	return sidePoint(side, i, e.Capacity(side)), true
}

func sidePoint(side Side, i, k int) Point {
	switch side {
	case SideTop:
		return Point{X: 0.5, Y: 0}
	case SideBottom:
		return Point{X: 0.5, Y: 1}
	case SideRight:
		return Point{X: 1, Y: float64(i+1) / float64(k+1)}
	default:
		return Point{X: 0, Y: float64(i+1) / float64(k+1)}
	}
}

// midpoint is the point used for degraded relations; it does not consume
// capacity.
func midpoint(side Side) Point {
	return sidePoint(side, 0, 1)
}

// MarshalText encodes the side by name.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
