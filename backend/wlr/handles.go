package wlr

import (
	"github.com/swaywm/go-wlroots/wlroots"
)

// table maps wlroots objects to the numeric handles the core deals in, both ways
type table[T comparable] struct {
	byID  map[uint64]T
	byObj map[T]uint64
}

func newTable[T comparable]() table[T] {
	return table[T]{byID: map[uint64]T{}, byObj: map[T]uint64{}}
}

func (t table[T]) add(id uint64, obj T) {
	t.byID[id] = obj
	t.byObj[obj] = id
}

func (t table[T]) get(id uint64) (T, bool) {
	obj, ok := t.byID[id]
	return obj, ok
}

func (t table[T]) id(obj T) (uint64, bool) {
	id, ok := t.byObj[obj]
	return id, ok
}

func (t table[T]) remove(obj T) (uint64, bool) {
	id, ok := t.byObj[obj]
	if ok {
		delete(t.byObj, obj)
		delete(t.byID, id)
	}
	return id, ok
}

// handles never reuses a number, zero stays invalid
type handles struct {
	next     uint64
	outputs  table[wlroots.Output]
	devices  table[wlroots.InputDevice]
	surfaces table[wlroots.XDGSurface]
}

func newHandles() *handles {
	return &handles{
		outputs:  newTable[wlroots.Output](),
		devices:  newTable[wlroots.InputDevice](),
		surfaces: newTable[wlroots.XDGSurface](),
	}
}

func (h *handles) alloc() uint64 {
	h.next++
	return h.next
}
