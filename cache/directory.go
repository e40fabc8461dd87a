package cache

import "github.com/pithecene-io/physlink/types"

type bodyEntry struct {
	baseName string
	joints   []types.JointInfo
}

// Directory maps body unique ids to their base name and joints.
// Entries keep insertion order so bodies can be enumerated by serial index.
// It is never partially evicted: entries leave only through Clear.
type Directory struct {
	names  Names
	bodies map[int]*bodyEntry
	order  []int
}

// NewDirectory creates an empty directory. A nil names uses DefaultNames.
func NewDirectory(names Names) *Directory {
	if names == nil {
		names = DefaultNames()
	}
	return &Directory{
		names:  names,
		bodies: make(map[int]*bodyEntry),
	}
}

// Put stores the body under id, replacing and releasing any previous entry.
func (d *Directory) Put(id int, baseName string, joints []types.JointInfo) {
	e := &bodyEntry{
		baseName: d.names.Retain(baseName),
		joints:   make([]types.JointInfo, len(joints)),
	}
	for i, j := range joints {
		j.LinkName = d.names.Retain(j.LinkName)
		j.JointName = d.names.Retain(j.JointName)
		e.joints[i] = j
	}

	if old, ok := d.bodies[id]; ok {
		d.release(old)
	} else {
		d.order = append(d.order, id)
	}
	d.bodies[id] = e
}

// Len returns the number of bodies.
func (d *Directory) Len() int {
	return len(d.order)
}

// ID returns the body unique id at serial index i.
func (d *Directory) ID(i int) (int, bool) {
	if i < 0 || i >= len(d.order) {
		return 0, false
	}
	return d.order[i], true
}

// IDs returns every body id in insertion order.
func (d *Directory) IDs() []int {
	return append([]int(nil), d.order...)
}

// Body returns the summary of body id.
func (d *Directory) Body(id int) (types.BodyInfo, bool) {
	e, ok := d.bodies[id]
	if !ok {
		return types.BodyInfo{}, false
	}
	return types.BodyInfo{BodyUniqueID: id, BaseName: e.baseName, NumJoints: len(e.joints)}, true
}

// NumJoints returns the joint count of body id, or 0 when absent.
func (d *Directory) NumJoints(id int) int {
	if e, ok := d.bodies[id]; ok {
		return len(e.joints)
	}
	return 0
}

// Joint returns joint index of body id.
func (d *Directory) Joint(id, index int) (types.JointInfo, bool) {
	e, ok := d.bodies[id]
	if !ok || index < 0 || index >= len(e.joints) {
		return types.JointInfo{}, false
	}
	return e.joints[index], true
}

// Clear releases every entry and empties the directory.
func (d *Directory) Clear() {
	for _, id := range d.order {
		d.release(d.bodies[id])
	}
	d.bodies = make(map[int]*bodyEntry)
	d.order = nil
}

func (d *Directory) release(e *bodyEntry) {
	for _, j := range e.joints {
		d.names.Release(j.LinkName)
		d.names.Release(j.JointName)
	}
	d.names.Release(e.baseName)
}
