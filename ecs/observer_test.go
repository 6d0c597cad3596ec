package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Observer_CollectsEnteredEntities(t *testing.T) {
	// Arrange
	reg := NewRegistry()
	obs := NewObserver(reg, OnEntered[position]())

	// Act
	e := spawn(t, reg, withPosition(1, 1))

	// Assert
	assert.Equal(t, 1, obs.Size())
	assert.Equal(t, []Entity{e}, obs.ToSlice())
}

func Test_Observer_DropsEntityWhenComponentLeaves(t *testing.T) {
	// Arrange
	reg := NewRegistry()
	obs := NewObserver(reg, OnEntered[position]())
	e := spawn(t, reg, withPosition(1, 1))
	require.Equal(t, 1, obs.Size())

	// Act
	require.True(t, Remove[position](reg, e))

	// Assert
	assert.True(t, obs.IsEmpty())
}

func Test_Observer_DestroyedEntityLeavesTheSet(t *testing.T) {
	// Arrange
	reg := NewRegistry()
	obs := NewObserver(reg, OnEntered[position]())
	e := spawn(t, reg, withPosition(1, 1))

	// Act
	require.NoError(t, reg.Destroy(e))

	// Assert
	assert.True(t, obs.IsEmpty())
}

func Test_Observer_EnteredWithUnlessFilter(t *testing.T) {
	// Arrange: collect entities gaining position while not holding velocity
	reg := NewRegistry()
	obs := NewObserver(reg, OnEntered[position](Unless(StorageOf[velocity](reg))))

	// Act
	slow := spawn(t, reg, withPosition(0, 0))
	spawn(t, reg, withVelocity(1, 0), withPosition(0, 0))

	// Assert
	assert.Equal(t, []Entity{slow}, obs.ToSlice())
}

func Test_Observer_EnteredWithWhereFilter(t *testing.T) {
	// Arrange: velocity only counts on entities already holding position
	reg := NewRegistry()
	obs := NewObserver(reg, OnEntered[velocity](Where(StorageOf[position](reg))))

	// Act
	moving := spawn(t, reg, withPosition(0, 0), withVelocity(1, 0))
	spawn(t, reg, withVelocity(1, 0))

	// Assert
	assert.Equal(t, []Entity{moving}, obs.ToSlice())
}

func Test_Observer_CollectsUpdatedEntities(t *testing.T) {
	// Arrange
	reg := NewRegistry()
	obs := NewObserver(reg, OnUpdated[position]())
	e := spawn(t, reg, withPosition(0, 0))
	require.True(t, obs.IsEmpty(), "emplace alone must not trigger an update collector")

	// Act
	require.NoError(t, Patch(reg, e, func(p *position) { p.X = 1 }))

	// Assert
	assert.Equal(t, []Entity{e}, obs.ToSlice())
}

func Test_Observer_ClearDrainsTheSet(t *testing.T) {
	// Arrange
	reg := NewRegistry()
	obs := NewObserver(reg, OnEntered[position]())
	spawn(t, reg, withPosition(0, 0))
	require.Equal(t, 1, obs.Size())

	// Act
	obs.Clear()

	// Assert: drained, but still collecting
	assert.True(t, obs.IsEmpty())
	spawn(t, reg, withPosition(0, 0))
	assert.Equal(t, 1, obs.Size())
}

func Test_Observer_DisconnectStopsCollecting(t *testing.T) {
	// Arrange
	reg := NewRegistry()
	obs := NewObserver(reg, OnEntered[position]())
	kept := spawn(t, reg, withPosition(0, 0))

	// Act
	obs.Disconnect()
	spawn(t, reg, withPosition(0, 0))

	// Assert: the collected set is untouched, nothing new arrives
	assert.Equal(t, []Entity{kept}, obs.ToSlice())
}

func Test_Observer_MarkIsIdempotentAcrossCollectors(t *testing.T) {
	// Arrange: two collectors can match the same entity
	reg := NewRegistry()
	obs := NewObserver(reg,
		OnEntered[position](),
		OnUpdated[position](),
	)
	e := spawn(t, reg, withPosition(0, 0))

	// Act
	require.NoError(t, Patch(reg, e, func(p *position) { p.X = 2 }))

	// Assert: collected once
	assert.Equal(t, 1, obs.Size())
}
