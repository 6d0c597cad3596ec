package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SparseSet_CreateAndInitialize(t *testing.T) {
	// Arrange & Act
	set := NewSparseSet()

	// Assert
	assert.NotNil(t, set)
	assert.Equal(t, 0, set.Size())
	assert.True(t, set.IsEmpty())
	assert.Equal(t, SwapAndPop, set.Policy())
	assert.Equal(t, DefaultPageSize, set.PageSize())
}

func Test_SparseSet_AddEntity(t *testing.T) {
	// Arrange
	set := NewSparseSet()
	e := Construct[Entity](123, 0)

	// Act
	err := set.Add(e)

	// Assert
	assert.NoError(t, err)
	assert.True(t, set.Contains(e))
	assert.Equal(t, 1, set.Size())
}

func Test_SparseSet_AddDuplicateEntity(t *testing.T) {
	// Arrange
	set := NewSparseSet()
	e := Construct[Entity](123, 0)
	require.NoError(t, set.Add(e))

	// Act
	err := set.Add(e)

	// Assert
	assert.Error(t, err)
	assert.True(t, IsCode(err, ErrEntityExists))
	assert.Equal(t, 1, set.Size())
}

func Test_SparseSet_RejectsReservedIdentifiers(t *testing.T) {
	set := NewSparseSet()

	assert.Error(t, set.Add(Null))
	assert.Error(t, set.Add(TombstoneEntity))
	assert.False(t, set.Contains(Null))
	assert.False(t, set.Contains(TombstoneEntity))
}

func Test_SparseSet_VersionMismatchIsNotContained(t *testing.T) {
	// Arrange
	set := NewSparseSet()
	e := Construct[Entity](7, 2)
	require.NoError(t, set.Add(e))

	// Act & Assert: same index, stale version
	assert.False(t, set.Contains(Construct[Entity](7, 1)))
	assert.True(t, set.Contains(e))
}

func Test_SparseSet_RemoveSwapsWithBack(t *testing.T) {
	// Arrange
	set := NewSparseSet()
	entities := []Entity{
		Construct[Entity](10, 0),
		Construct[Entity](20, 0),
		Construct[Entity](30, 0),
	}
	for _, e := range entities {
		require.NoError(t, set.Add(e))
	}

	// Act: remove the middle element
	err := set.Remove(entities[1])

	// Assert: the back moved into the hole, links intact
	assert.NoError(t, err)
	assert.False(t, set.Contains(entities[1]))
	assert.Equal(t, 2, set.Size())
	assert.Equal(t, 2, set.Extent())

	idx, err := set.Index(entities[2])
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func Test_SparseSet_RemoveNonExistentEntity(t *testing.T) {
	// Arrange
	set := NewSparseSet()

	// Act
	err := set.Remove(Construct[Entity](789, 0))

	// Assert
	assert.Error(t, err)
	assert.True(t, IsCode(err, ErrEntityNotFound))
}

func Test_SparseSet_DiscardIsIdempotent(t *testing.T) {
	// Arrange
	set := NewSparseSet()
	e := Construct[Entity](5, 0)
	require.NoError(t, set.Add(e))

	// Act & Assert
	assert.True(t, set.Discard(e))
	assert.False(t, set.Discard(e))
}

func Test_SparseSet_DenseLinksStayCoherent(t *testing.T) {
	// Arrange
	set := NewSparseSet()
	for i := 0; i < 64; i++ {
		require.NoError(t, set.Add(Construct(Entity(i*3), Entity(i%5))))
	}

	// Act: remove every other entity
	for i := 0; i < 64; i += 2 {
		require.NoError(t, set.Remove(Construct(Entity(i*3), Entity(i%5))))
	}

	// Assert: dense[sparse[e]] == e for every survivor
	for _, e := range set.Data() {
		idx, err := set.Index(e)
		require.NoError(t, err)
		got, err := set.At(idx)
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}
	assert.Equal(t, 32, set.Size())
}

func Test_SparseSet_PageAllocationOnDemand(t *testing.T) {
	// Arrange: indices far apart land on distinct pages
	set := NewSparseSet()
	near := Construct[Entity](1, 0)
	far := Construct[Entity](DefaultPageSize*8+3, 0)

	// Act
	require.NoError(t, set.Add(near))
	require.NoError(t, set.Add(far))

	// Assert
	assert.True(t, set.Contains(near))
	assert.True(t, set.Contains(far))
	assert.Equal(t, 2, set.Size())
}

func Test_SparseSet_CustomPageSize(t *testing.T) {
	// Arrange & Act
	set := NewSparseSet(WithPageSize(64))

	// Assert
	assert.Equal(t, 64, set.PageSize())

	require.NoError(t, set.Add(Construct[Entity](1000, 0)))
	assert.True(t, set.Contains(Construct[Entity](1000, 0)))
}

func Test_SparseSet_Clear(t *testing.T) {
	// Arrange
	set := NewSparseSet()
	for i := 0; i < 10; i++ {
		require.NoError(t, set.Add(Construct(Entity(i), 0)))
	}

	// Act
	set.Clear()

	// Assert
	assert.Equal(t, 0, set.Size())
	assert.True(t, set.IsEmpty())
	assert.False(t, set.Contains(Construct[Entity](0, 0)))
}

func Test_SparseSet_EachIteratesReverseDenseOrder(t *testing.T) {
	// Arrange
	set := NewSparseSet()
	entities := []Entity{
		Construct[Entity](1, 0),
		Construct[Entity](2, 0),
		Construct[Entity](3, 0),
	}
	for _, e := range entities {
		require.NoError(t, set.Add(e))
	}

	// Act
	var visited []Entity
	set.Each(func(e Entity) bool {
		visited = append(visited, e)
		return true
	})

	// Assert
	assert.Equal(t, []Entity{entities[2], entities[1], entities[0]}, visited)
}

func Test_SparseSet_EachStopsWhenCallbackReturnsFalse(t *testing.T) {
	// Arrange
	set := NewSparseSet()
	for i := 0; i < 10; i++ {
		require.NoError(t, set.Add(Construct(Entity(i), 0)))
	}

	// Act
	count := 0
	set.Each(func(Entity) bool {
		count++
		return count < 3
	})

	// Assert
	assert.Equal(t, 3, count)
}

func Test_SparseSet_InPlaceRemoveLeavesTombstone(t *testing.T) {
	// Arrange
	set := NewSparseSet(WithInPlaceDelete())
	a := Construct[Entity](1, 0)
	b := Construct[Entity](2, 0)
	c := Construct[Entity](3, 0)
	for _, e := range []Entity{a, b, c} {
		require.NoError(t, set.Add(e))
	}

	// Act
	require.NoError(t, set.Remove(b))

	// Assert: extent unchanged, hole tombstoned, survivors in place
	assert.Equal(t, 2, set.Size())
	assert.Equal(t, 3, set.Extent())

	hole, err := set.At(1)
	require.NoError(t, err)
	assert.True(t, IsTombstone(hole))

	idxC, err := set.Index(c)
	require.NoError(t, err)
	assert.Equal(t, 2, idxC)
}

func Test_SparseSet_InPlaceAddReusesFreedSlot(t *testing.T) {
	// Arrange
	set := NewSparseSet(WithInPlaceDelete())
	a := Construct[Entity](1, 0)
	b := Construct[Entity](2, 0)
	require.NoError(t, set.Add(a))
	require.NoError(t, set.Add(b))
	require.NoError(t, set.Remove(a))

	// Act
	fresh := Construct[Entity](9, 0)
	require.NoError(t, set.Add(fresh))

	// Assert: the freed dense slot was recycled
	idx, err := set.Index(fresh)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 2, set.Extent())
}

func Test_SparseSet_InPlaceEachSkipsTombstones(t *testing.T) {
	// Arrange
	set := NewSparseSet(WithInPlaceDelete())
	for i := 0; i < 6; i++ {
		require.NoError(t, set.Add(Construct(Entity(i), 0)))
	}
	for i := 0; i < 6; i += 2 {
		require.NoError(t, set.Remove(Construct(Entity(i), 0)))
	}

	// Act
	var visited []Entity
	set.Each(func(e Entity) bool {
		visited = append(visited, e)
		return true
	})

	// Assert
	assert.Len(t, visited, 3)
	for _, e := range visited {
		assert.True(t, set.Contains(e))
	}
}

func Test_SparseSet_CompactCoalescesTombstones(t *testing.T) {
	// Arrange
	set := NewSparseSet(WithInPlaceDelete())
	for i := 0; i < 8; i++ {
		require.NoError(t, set.Add(Construct(Entity(i), 0)))
	}
	for i := 1; i < 8; i += 2 {
		require.NoError(t, set.Remove(Construct(Entity(i), 0)))
	}
	require.Equal(t, 8, set.Extent())

	// Act
	set.Compact()

	// Assert: survivors keep their relative order, extent shrinks
	assert.Equal(t, 4, set.Size())
	assert.Equal(t, 4, set.Extent())
	assert.Equal(t, []Entity{
		Construct[Entity](0, 0),
		Construct[Entity](2, 0),
		Construct[Entity](4, 0),
		Construct[Entity](6, 0),
	}, set.Data())

	for _, e := range set.Data() {
		idx, err := set.Index(e)
		require.NoError(t, err)
		got, err := set.At(idx)
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}

	// Free list is gone; new adds append
	require.NoError(t, set.Add(Construct[Entity](100, 0)))
	assert.Equal(t, 5, set.Extent())
}

func Test_SparseSet_SortRebuildsLinks(t *testing.T) {
	// Arrange
	set := NewSparseSet()
	for _, i := range []uint64{5, 1, 4, 2, 3} {
		require.NoError(t, set.Add(makeEntity(i, 0)))
	}

	// Act: ascending by index
	set.Sort(func(lhs, rhs Entity) bool {
		return lhs.Index() < rhs.Index()
	})

	// Assert
	assert.Equal(t, []Entity{
		makeEntity(1, 0), makeEntity(2, 0), makeEntity(3, 0),
		makeEntity(4, 0), makeEntity(5, 0),
	}, set.Data())
	for i, e := range set.Data() {
		idx, err := set.Index(e)
		require.NoError(t, err)
		assert.Equal(t, i, idx)
	}
}

func Test_SparseSet_RespectFollowsOtherOrder(t *testing.T) {
	// Arrange: lhs = {1,2,3,4}, rhs orders the shared subset {3,1,2}
	lhs := NewSparseSet()
	for _, i := range []uint64{1, 2, 3, 4} {
		require.NoError(t, lhs.Add(makeEntity(i, 0)))
	}
	rhs := NewSparseSet()
	for _, i := range []uint64{3, 1, 2} {
		require.NoError(t, rhs.Add(makeEntity(i, 0)))
	}

	// Act
	lhs.Respect(rhs)

	// Assert: shared entities at the back of lhs follow rhs dense order,
	// so both sets iterate them the same way
	var lhsOrder []Entity
	lhs.Each(func(e Entity) bool {
		if rhs.Contains(e) {
			lhsOrder = append(lhsOrder, e)
		}
		return true
	})
	var rhsOrder []Entity
	rhs.Each(func(e Entity) bool {
		rhsOrder = append(rhsOrder, e)
		return true
	})
	assert.Equal(t, rhsOrder, lhsOrder)

	// Links stay coherent
	for _, e := range lhs.Data() {
		idx, err := lhs.Index(e)
		require.NoError(t, err)
		got, err := lhs.At(idx)
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}
}

func Test_SparseSet_ToSlice(t *testing.T) {
	// Arrange
	set := NewSparseSet()
	for i := 0; i < 5; i++ {
		require.NoError(t, set.Add(Construct(Entity(i), 0)))
	}

	// Act
	out := set.ToSlice()

	// Assert: a copy, not an alias
	assert.Len(t, out, 5)
	out[0] = Null
	assert.Equal(t, 5, set.Size())
}
