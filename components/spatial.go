package components

import "gonum.org/v1/gonum/spatial/r3"

// Position represents an entity's world position.
type Position r3.Vec

// Velocity is derived each tick as Direction * MoveSpeed.
// Entities without it are moved by speed and heading alone.
type Velocity r3.Vec

// Direction is the unit heading of an entity.
type Direction r3.Vec

// Vec returns the position as an r3 vector.
func (p Position) Vec() r3.Vec { return r3.Vec(p) }

// Vec returns the velocity as an r3 vector.
func (v Velocity) Vec() r3.Vec { return r3.Vec(v) }

// Vec returns the heading as an r3 vector.
func (d Direction) Vec() r3.Vec { return r3.Vec(d) }
