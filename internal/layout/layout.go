// Package layout turns a schema model into positioned entities and connected
// relations. It builds the undirected relationship graph, plans a
// deterministic visiting order, places entities on a square grid and assigns
// non-overlapping connection points to every relation. Identical schemas
// always produce identical layouts.
package layout

import (
	"sqlerd/internal/core"
	"sqlerd/internal/translate"
)

// Options holds the geometry of a layout. Zero fields take their defaults.
type Options struct {
	XSpacing     int
	YSpacing     int
	EntityWidth  int
	EntityHeight int
	RowHeight    int
	CharWidth    int
	// Translator supplies display names; nil keeps the original names and
	// leaves relations unlabelled.
	Translator translate.Translator
}

// DefaultOptions returns the standard geometry.
func DefaultOptions() Options {
	return Options{
		XSpacing:     300,
		YSpacing:     200,
		EntityWidth:  200,
		EntityHeight: 60,
		RowHeight:    30,
		CharWidth:    7,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.XSpacing <= 0 {
		o.XSpacing = d.XSpacing
	}
	if o.YSpacing <= 0 {
		o.YSpacing = d.YSpacing
	}
	if o.EntityWidth <= 0 {
		o.EntityWidth = d.EntityWidth
	}
	if o.EntityHeight <= 0 {
		o.EntityHeight = d.EntityHeight
	}
	if o.RowHeight <= 0 {
		o.RowHeight = d.RowHeight
	}
	if o.CharWidth <= 0 {
		o.CharWidth = d.CharWidth
	}
	if o.Translator == nil {
		o.Translator = translate.Identity{}
	}
	return o
}

// Layout is the result of a build. Entities is an arena indexed by table
// index; Relations are in the order they were connected.
type Layout struct {
	GridSize  int         `json:"grid_size"`
	Order     []int       `json:"order"`
	Entities  []*Entity   `json:"entities"`
	Relations []*Relation `json:"relations"`
}

// InOrder returns the entities in visiting order.
func (l *Layout) InOrder() []*Entity {
	out := make([]*Entity, 0, len(l.Order))
	for _, i := range l.Order {
		out = append(out, l.Entities[i])
	}
	return out
}

// Build lays out the schema. It fails only on internal-consistency errors:
// a foreign key naming an unknown table or an exhausted placement grid.
func Build(s *core.Schema, opts Options) (*Layout, error) {
	opts = opts.withDefaults()

	adj, err := Adjacency(s)
	if err != nil {
		return nil, err
	}
	order, err := VisitOrder(adj)
	if err != nil {
		return nil, err
	}
	cells, err := Place(order, adj)
	if err != nil {
		return nil, err
	}

	l := &Layout{
		GridSize: GridSize(s.Len()),
		Order:    order,
		Entities: make([]*Entity, s.Len()),
	}
	for i, t := range s.Tables {
		l.Entities[i] = newEntity(i, t, cells[i], opts)
	}
	l.Relations = connectAll(s, order, l.Entities, opts.Translator)
	return l, nil
}

func newEntity(index int, t *core.Table, cell Cell, opts Options) *Entity {
	tr := opts.Translator
	e := &Entity{
		Index:      index,
		Table:      t.Name,
		Name:       tr.TableName(t.Name),
		Attributes: make([]Attribute, 0, len(t.Columns)),
		Width:      opts.EntityWidth,
		Height:     opts.EntityHeight,
		Cell:       cell,
		X:          cell.Col * opts.XSpacing,
		Y:          cell.Row * opts.YSpacing,
		Dependent:  t.IsDependent(),
	}
	e.Width = max(e.Width, displayWidth(e.Name)*opts.CharWidth)
	for _, c := range t.Columns {
		a := Attribute{
			Column:  c.Name,
			Name:    tr.ColumnName(t.Name, c.Name),
			Type:    c.Type,
			Primary: t.InPrimaryKey(c.Name),
			Foreign: t.InForeignKey(c.Name),
		}
		e.Attributes = append(e.Attributes, a)
		e.Height += opts.RowHeight
		e.Width = max(e.Width, displayWidth(a.Name)*opts.CharWidth)
	}
	return e
}

type touch struct {
	fk     *core.ForeignKey
	child  int
	parent int
}

// connectAll visits entities in order and connects every relation touching
// each one that is not connected yet. Per entity, relations are taken in
// schema order (owning table, then foreign key position).
func connectAll(s *core.Schema, order []int, entities []*Entity, tr translate.Translator) []*Relation {
	touches := make([][]touch, len(entities))
	for i, t := range s.Tables {
		for _, fk := range t.ForeignKeys {
			j := s.IndexOf(fk.References.Table)
			tc := touch{fk: fk, child: i, parent: j}
			touches[i] = append(touches[i], tc)
			if j != i {
				touches[j] = append(touches[j], tc)
			}
		}
	}

	done := make(map[*core.ForeignKey]bool)
	var relations []*Relation
	for _, v := range order {
		for _, tc := range touches[v] {
			if done[tc.fk] {
				continue
			}
			done[tc.fk] = true

			other := tc.parent
			if v == tc.parent {
				other = tc.child
			}
			near, far, degraded := connect(entities[v], entities[other])
			child, parent := near, far
			if v != tc.child {
				child, parent = far, near
			}

			owner := s.Tables[tc.child]
			relations = append(relations, &Relation{
				Constraint:  tc.fk.ConstraintName,
				Child:       tc.child,
				Parent:      tc.parent,
				Columns:     tc.fk.Columns,
				RefColumns:  tc.fk.References.Columns,
				Label:       tr.RelationLabel(owner.Name, tc.fk),
				Identifying: isIdentifying(owner, tc.fk),
				ChildSide:   child.side,
				ParentSide:  parent.side,
				ChildPoint:  child.point,
				ParentPoint: parent.point,
				Degraded:    degraded,
			})
		}
	}
	return relations
}
