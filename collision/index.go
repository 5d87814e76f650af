package collision

import (
	"sort"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/roomlayout/bounds"
	"github.com/aukilabs/roomlayout/models"
	"github.com/dhconnelly/rtreego"
)

const (
	DefaultMargin = 0.05

	// Rects handed to the R-tree are padded so that flat volumes still have a
	// positive extent. The exact test runs on the unpadded volumes.
	broadPhasePadding = 1e-4

	treeMinChildren = 25
	treeMaxChildren = 50
)

// Collision is a registered volume that overlaps a candidate.
type Collision struct {
	ID     models.ObjectID       `json:"id"`
	Volume bounds.BoundingVolume `json:"volume"`
}

// Result is the outcome of a query.
type Result struct {
	CanPlace bool `json:"can_place"`

	// The overlapping volumes, in registration order.
	Collisions []Collision `json:"collisions,omitempty"`
}

// IDs returns the ids of the colliding objects.
func (r Result) IDs() []models.ObjectID {
	ids := make([]models.ObjectID, len(r.Collisions))
	for i, c := range r.Collisions {
		ids[i] = c.ID
	}
	return ids
}

// Entry is a registered volume.
type Entry struct {
	ID     models.ObjectID
	Volume bounds.BoundingVolume
}

type entry struct {
	id     models.ObjectID
	volume bounds.BoundingVolume
	seq    uint64

	rect    rtreego.Rect
	indexed bool
}

func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

// Index stores the world volumes of placed objects and answers overlap
// queries. It is not safe for concurrent use.
type Index struct {
	// The distance added on the X and Z axes of a candidate before testing it.
	Margin float32

	// Reports whether an object still exists. Registered ids for which it
	// returns false are removed on the next query.
	Liveness func(models.ObjectID) bool

	entries   map[models.ObjectID]*entry
	unindexed map[models.ObjectID]*entry
	tree      *rtreego.Rtree
	seq       uint64
}

func NewIndex() *Index {
	return &Index{
		Margin: DefaultMargin,
	}
}

func (idx *Index) init() {
	if idx.entries == nil {
		idx.entries = make(map[models.ObjectID]*entry)
		idx.unindexed = make(map[models.ObjectID]*entry)
		idx.tree = rtreego.NewTree(3, treeMinChildren, treeMaxChildren)
	}
}

// Register inserts or replaces the volume of an object. Replacing an entry
// keeps its position in the registration order.
func (idx *Index) Register(id models.ObjectID, v bounds.BoundingVolume) {
	idx.init()

	e, ok := idx.entries[id]
	if ok {
		idx.unlink(e)
	} else {
		idx.seq++
		e = &entry{id: id, seq: idx.seq}
		idx.entries[id] = e
	}

	e.volume = v
	idx.link(e)
}

// Unregister removes the volume of an object. It is a no-op when the object
// is not registered.
func (idx *Index) Unregister(id models.ObjectID) {
	e, ok := idx.entries[id]
	if !ok {
		return
	}

	idx.unlink(e)
	delete(idx.entries, id)
}

// Query tests a candidate volume against every registered volume, except the
// ones of the excluded objects. The candidate is first grown by the index
// margin on the horizontal axes.
func (idx *Index) Query(candidate bounds.BoundingVolume, exclude ...models.ObjectID) Result {
	idx.prune()

	expanded := candidate.ExpandHorizontal(idx.Margin)

	var collisions []Collision
	for _, e := range idx.candidates(expanded) {
		if isExcluded(e.id, exclude) || !expanded.Intersects(e.volume) {
			continue
		}

		collisions = append(collisions, Collision{
			ID:     e.id,
			Volume: e.volume,
		})
	}

	return Result{
		CanPlace:   len(collisions) == 0,
		Collisions: collisions,
	}
}

// Clear removes every registered volume.
func (idx *Index) Clear() {
	idx.entries = nil
	idx.unindexed = nil
	idx.tree = nil
}

func (idx *Index) Count() int {
	return len(idx.entries)
}

func (idx *Index) Has(id models.ObjectID) bool {
	_, ok := idx.entries[id]
	return ok
}

// Volume returns the registered volume of an object.
func (idx *Index) Volume(id models.ObjectID) (bounds.BoundingVolume, bool) {
	e, ok := idx.entries[id]
	if !ok {
		return bounds.BoundingVolume{}, false
	}
	return e.volume, true
}

// Entries returns the registered volumes in registration order.
func (idx *Index) Entries() []Entry {
	sorted := idx.sorted(idx.all())

	entries := make([]Entry, len(sorted))
	for i, e := range sorted {
		entries[i] = Entry{ID: e.id, Volume: e.volume}
	}
	return entries
}

func (idx *Index) candidates(v bounds.BoundingVolume) []*entry {
	if len(idx.entries) == 0 {
		return nil
	}

	r, ok := rect(v)
	if !ok {
		return idx.sorted(idx.all())
	}

	found := idx.tree.SearchIntersect(r)
	entries := make([]*entry, 0, len(found)+len(idx.unindexed))
	for _, s := range found {
		entries = append(entries, s.(*entry))
	}
	for _, e := range idx.unindexed {
		entries = append(entries, e)
	}
	return idx.sorted(entries)
}

func (idx *Index) prune() {
	if idx.Liveness == nil {
		return
	}

	for id := range idx.entries {
		if idx.Liveness(id) {
			continue
		}

		logs.WithTag("object_id", id).Debug("pruning stale collision entry")
		idx.Unregister(id)
	}
}

func (idx *Index) link(e *entry) {
	r, ok := rect(e.volume)
	if !ok {
		e.indexed = false
		idx.unindexed[e.id] = e
		return
	}

	e.rect = r
	e.indexed = true
	idx.tree.Insert(e)
}

func (idx *Index) unlink(e *entry) {
	if e.indexed {
		idx.tree.Delete(e)
		e.indexed = false
		return
	}
	delete(idx.unindexed, e.id)
}

func (idx *Index) all() []*entry {
	entries := make([]*entry, 0, len(idx.entries))
	for _, e := range idx.entries {
		entries = append(entries, e)
	}
	return entries
}

func (idx *Index) sorted(entries []*entry) []*entry {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})
	return entries
}

func rect(v bounds.BoundingVolume) (rtreego.Rect, bool) {
	if !v.IsValid() {
		return rtreego.Rect{}, false
	}

	lo := rtreego.Point{
		float64(v.Min.X) - broadPhasePadding,
		float64(v.Min.Y) - broadPhasePadding,
		float64(v.Min.Z) - broadPhasePadding,
	}
	hi := rtreego.Point{
		float64(v.Max.X) + broadPhasePadding,
		float64(v.Max.Y) + broadPhasePadding,
		float64(v.Max.Z) + broadPhasePadding,
	}

	r, err := rtreego.NewRectFromPoints(lo, hi)
	if err != nil {
		logs.WithTag("volume", v).
			WithTag("error", err.Error()).
			Debug("volume can not be indexed by the broad phase")
		return rtreego.Rect{}, false
	}
	return r, true
}

func isExcluded(id models.ObjectID, exclude []models.ObjectID) bool {
	for _, e := range exclude {
		if id == e {
			return true
		}
	}
	return false
}
