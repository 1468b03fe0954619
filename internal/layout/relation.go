package layout

import "sqlerd/internal/core"

// Relation is the edge derived from one foreign key. The child owns the
// foreign key; the parent is the referenced table.
type Relation struct {
	Constraint  string   `json:"constraint"`
	Child       int      `json:"child"`
	Parent      int      `json:"parent"`
	Columns     []string `json:"columns"`
	RefColumns  []string `json:"ref_columns"`
	Label       string   `json:"label"`
	Identifying bool     `json:"identifying"`
	ChildSide   Side     `json:"child_side"`
	ParentSide  Side     `json:"parent_side"`
	ChildPoint  Point    `json:"child_point"`
	ParentPoint Point    `json:"parent_point"`
	// Degraded is set when no side pair had free points; the endpoints are
	// then side midpoints that consumed no capacity.
	Degraded bool `json:"degraded"`
}

// isIdentifying reports whether every local column of the foreign key is part
// of the owner's primary key.
func isIdentifying(t *core.Table, fk *core.ForeignKey) bool {
	if len(fk.Columns) == 0 {
		return false
	}
	for _, c := range fk.Columns {
		if !t.InPrimaryKey(c) {
			return false
		}
	}
	return true
}

// sidePriorities returns the paired side preference lists for connecting
// from an entity to one offset by (dx, dy) pixels: the i-th entry of from is
// tried together with the i-th entry of to.
func sidePriorities(dx, dy int) (from, to [4]Side) {
	if abs(dx) > abs(dy) {
		if dx > 0 {
			return [4]Side{SideRight, SideTop, SideBottom, SideLeft}, [4]Side{SideLeft, SideTop, SideBottom, SideRight}
		}
		return [4]Side{SideLeft, SideTop, SideBottom, SideRight}, [4]Side{SideRight, SideTop, SideBottom, SideLeft}
	}
	if dy > 0 {
		return [4]Side{SideBottom, SideRight, SideLeft, SideTop}, [4]Side{SideTop, SideRight, SideLeft, SideBottom}
	}
	return [4]Side{SideTop, SideRight, SideLeft, SideBottom}, [4]Side{SideBottom, SideRight, SideLeft, SideTop}
}

type endpoint struct {
	side  Side
	point Point
}

// connect picks the first side pair on which both entities still have a free
// point and allocates them. When none is left it returns degraded midpoints
// of the preferred pair.
func connect(from, to *Entity) (a, b endpoint, degraded bool) {
	fromSides, toSides := sidePriorities(to.X-from.X, to.Y-from.Y)
	for i := range fromSides {
		fs, ts := fromSides[i], toSides[i]
		if !pairAvailable(from, fs, to, ts) {
			continue
		}
		fp, _ := from.Allocate(fs)
		tp, _ := to.Allocate(ts)
		return endpoint{fs, fp}, endpoint{ts, tp}, false
	}
	return endpoint{fromSides[0], midpoint(fromSides[0])}, endpoint{toSides[0], midpoint(toSides[0])}, true
}

func pairAvailable(a *Entity, as Side, b *Entity, bs Side) bool {
	if a == b && as == bs {
		return a.Available(as) >= 2
	}
	return a.Available(as) > 0 && b.Available(bs) > 0
}
