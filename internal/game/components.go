// Package game wires the ECS runtime into a small playable demo: a field of
// drifting sprites updated and rendered through views each frame.
package game

import (
	"image/color"
)

// Vec2 represents a 2D vector for positions and velocities.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transform holds entity position, rotation, and scale.
type Transform struct {
	Position Vec2    `json:"position"`
	Rotation float64 `json:"rotation"`
	Scale    Vec2    `json:"scale"`
}

// NewTransform creates a transform with default scale.
func NewTransform(x, y float64) Transform {
	return Transform{
		Position: Vec2{X: x, Y: y},
		Scale:    Vec2{X: 1, Y: 1},
	}
}

// Velocity is the linear velocity applied by the movement pass.
type Velocity struct {
	Linear Vec2 `json:"linear"`
}

// Sprite describes how an entity is rendered.
type Sprite struct {
	Size  float64    `json:"size"`
	Color color.RGBA `json:"color"`
}

// Frozen is a zero-size marker excluding an entity from movement.
type Frozen struct{}
