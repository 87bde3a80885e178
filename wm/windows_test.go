package wm

import (
	"testing"

	"github.com/mstarongithub/way2kiosk/backend"
	"github.com/mstarongithub/way2kiosk/common/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMappedRegistry(t *testing.T, output backend.OutputID, ids ...backend.SurfaceID) *WindowRegistry {
	t.Helper()
	r := NewWindowRegistry()
	for _, id := range ids {
		_, err := r.Create(id, backend.RoleToplevel, "")
		require.NoError(t, err)
		require.NoError(t, r.Map(id, output, geom.Rect{Width: 100, Height: 100}))
	}
	return r
}

func TestUnmapKeepsOrderOfSurvivors(t *testing.T) {
	r := newMappedRegistry(t, 1, 1, 2, 3, 4)
	from, err := r.Unmap(2)
	require.NoError(t, err)
	assert.Equal(t, backend.OutputID(1), from)
	assert.Equal(t, []backend.SurfaceID{1, 3, 4}, r.List(1))

	w, err := r.Get(2)
	require.NoError(t, err, "unmap must not invalidate the window")
	assert.False(t, w.Mapped)
	assert.Equal(t, backend.OutputID(0), w.Output)

	_, err = r.Unmap(2)
	assert.ErrorIs(t, err, ErrNotMapped)
	require.NoError(t, r.Check())
}

func TestMapDefaultsToUsableArea(t *testing.T) {
	r := NewWindowRegistry()
	_, err := r.Create(1, backend.RoleToplevel, "foot")
	require.NoError(t, err)
	usable := geom.Rect{X: 0, Y: 30, Width: 1920, Height: 1050}
	require.NoError(t, r.Map(1, 4, usable))
	w, _ := r.Get(1)
	assert.Equal(t, usable, w.Geometry)
	assert.ErrorIs(t, r.Map(1, 4, usable), ErrAlreadyMapped)

	_, err = r.Create(1, backend.RoleToplevel, "")
	assert.ErrorIs(t, err, ErrDuplicateWindow)
	_, err = r.Create(2, backend.RoleLayer, "")
	require.NoError(t, err)
	assert.ErrorIs(t, r.Map(2, 4, usable), ErrNotManaged)
}

func TestDestroyRemovesFromList(t *testing.T) {
	r := newMappedRegistry(t, 1, 1, 2, 3)
	from, err := r.Destroy(1)
	require.NoError(t, err)
	assert.Equal(t, backend.OutputID(1), from)
	assert.Equal(t, []backend.SurfaceID{2, 3}, r.List(1))
	_, err = r.Get(1)
	assert.ErrorIs(t, err, ErrUnknownWindow)
	_, err = r.Destroy(1)
	assert.ErrorIs(t, err, ErrUnknownWindow)
	require.NoError(t, r.Check())
}

func TestReassignAppendsInOrder(t *testing.T) {
	r := newMappedRegistry(t, 1, 1, 2)
	for _, id := range []backend.SurfaceID{5, 6, 7} {
		_, err := r.Create(id, backend.RoleToplevel, "")
		require.NoError(t, err)
		require.NoError(t, r.Map(id, 2, geom.Rect{}))
	}
	moved := r.Reassign(2, 1)
	assert.Equal(t, []backend.SurfaceID{5, 6, 7}, moved)
	assert.Equal(t, []backend.SurfaceID{1, 2, 5, 6, 7}, r.List(1))
	assert.Empty(t, r.List(2))
	w, _ := r.Get(6)
	assert.Equal(t, backend.OutputID(1), w.Output)
	require.NoError(t, r.Check())

	assert.Nil(t, r.Reassign(1, 1))
	assert.Len(t, r.List(1), 5)
}

func TestCheckCatchesBrokenState(t *testing.T) {
	r := newMappedRegistry(t, 1, 1, 2)
	r.windows[2].Output = 9
	assert.Error(t, r.Check())

	r = newMappedRegistry(t, 1, 1)
	r.lists[2] = []backend.SurfaceID{1}
	assert.Error(t, r.Check())

	r = newMappedRegistry(t, 1, 1)
	r.windows[1].Mapped = false
	assert.Error(t, r.Check())
}
