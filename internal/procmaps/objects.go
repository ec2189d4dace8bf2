package procmaps

import (
	"sort"
)

type Segment struct {
	Start, End uint64
}

// Object is one loaded image (executable or shared library) assembled from
// the consecutive file-backed regions that map it.
type Object struct {
	Path     string
	Dev      string
	Inode    uint64
	Base     uint64 // runtime address of file offset 0
	Segments []Segment
}

func (o *Object) Start() uint64 { return o.Segments[0].Start }

func (o *Object) End() uint64 { return o.Segments[len(o.Segments)-1].End }

func (o *Object) contains(addr uint64) bool {
	for _, s := range o.Segments {
		if addr >= s.Start && addr < s.End {
			return true
		}
	}
	return false
}

// Table is an immutable, address-sorted view of the loaded objects of a
// process. It is safe for concurrent use.
type Table struct {
	objects []Object
}

func NewTable(regions []MapRegion) *Table {
	return &Table{objects: BuildObjects(regions)}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.objects)
}

func (t *Table) Objects() []Object {
	if t == nil {
		return nil
	}
	return t.objects
}

func (t *Table) Find(addr uint64) (*Object, bool) {
	if t == nil || len(t.objects) == 0 {
		return nil, false
	}
	i := sort.Search(len(t.objects), func(i int) bool {
		return addr < t.objects[i].Start()
	})
	if i == 0 {
		return nil, false
	}
	obj := &t.objects[i-1]
	if !obj.contains(addr) {
		return nil, false
	}
	return obj, true
}

// BuildObjects groups file-backed regions into objects. A new object starts
// whenever the backing file changes or the file is mapped again from offset 0.
func BuildObjects(regions []MapRegion) []Object {
	sorted := make([]MapRegion, 0, len(regions))
	for _, r := range regions {
		if r.FileBacked() && r.End > r.Start {
			sorted = append(sorted, r)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var objects []Object
	var cur *Object
	var curHasHead bool
	for _, r := range sorted {
		sameFile := cur != nil && cur.Path == r.Path && cur.Dev == r.Dev && cur.Inode == r.Inode
		if !sameFile || (r.Offset == 0 && curHasHead) {
			objects = append(objects, Object{Path: r.Path, Dev: r.Dev, Inode: r.Inode, Base: r.Start - r.Offset})
			cur = &objects[len(objects)-1]
			curHasHead = false
		}
		if r.Offset == 0 && !curHasHead {
			cur.Base = r.Start
			curHasHead = true
		}
		cur.Segments = append(cur.Segments, Segment{Start: r.Start, End: r.End})
	}
	return objects
}
