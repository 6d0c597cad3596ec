package ecs

import (
	"fmt"
)

// ==============================================
// Error Type
// ==============================================

// Error represents a failure reported by the ECS runtime.
// It carries a machine-readable code plus the entity and component type
// involved, so callers can branch without parsing messages.
type Error struct {
	Code      string `json:"code"`                // Error code for programmatic handling
	Message   string `json:"message"`             // Human-readable error message
	Component string `json:"component,omitempty"` // Component type involved in the error
	Entity    Entity `json:"entity,omitempty"`    // Entity involved in the error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Entity != Null && e.Component != "" {
		return fmt.Sprintf("[%s] %s (Entity: %d, Component: %s)", e.Code, e.Message, e.Entity, e.Component)
	}
	if e.Entity != Null {
		return fmt.Sprintf("[%s] %s (Entity: %d)", e.Code, e.Message, e.Entity)
	}
	if e.Component != "" {
		return fmt.Sprintf("[%s] %s (Component: %s)", e.Code, e.Message, e.Component)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Is makes errors.Is match any *Error with the same code.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Code == e.Code
}

// ==============================================
// Common Error Codes
// ==============================================

const (
	// Entity-related errors
	ErrEntityNotFound  = "ENTITY_NOT_FOUND"  // Entity does not exist or version is stale
	ErrInvalidEntityID = "INVALID_ENTITY_ID" // Identifier is null, tombstone or corrupted
	ErrEntityExists    = "ENTITY_EXISTS"     // Entity already present in the target set

	// Component-related errors
	ErrComponentNotFound = "COMPONENT_NOT_FOUND" // Component not attached to entity
	ErrComponentExists   = "COMPONENT_EXISTS"    // Component already attached to entity
	ErrStorageMismatch   = "STORAGE_TYPE_MISMATCH"

	// Range and argument errors
	ErrIndexOutOfRange = "INDEX_OUT_OF_RANGE"
	ErrInvalidArgument = "INVALID_ARGUMENT"
)

// Sentinels for errors.Is; every runtime error with the matching code
// compares equal to the corresponding sentinel.
var (
	ErrorEntityNotFound    = &Error{Code: ErrEntityNotFound, Message: "entity not found", Entity: Null}
	ErrorInvalidEntity     = &Error{Code: ErrInvalidEntityID, Message: "invalid entity identifier", Entity: Null}
	ErrorEntityExists      = &Error{Code: ErrEntityExists, Message: "entity already exists", Entity: Null}
	ErrorComponentNotFound = &Error{Code: ErrComponentNotFound, Message: "component not found", Entity: Null}
	ErrorComponentExists   = &Error{Code: ErrComponentExists, Message: "component already exists", Entity: Null}
	ErrorStorageMismatch   = &Error{Code: ErrStorageMismatch, Message: "storage type mismatch", Entity: Null}
)

// IsCode reports whether err is an *Error carrying the given code.
func IsCode(err error, code string) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}

func errEntityNotFound(entity Entity, component string) *Error {
	return &Error{Code: ErrEntityNotFound, Message: "entity not found", Entity: entity, Component: component}
}

func errInvalidEntity(entity Entity) *Error {
	return &Error{Code: ErrInvalidEntityID, Message: "invalid entity identifier", Entity: entity}
}

func errEntityExists(entity Entity) *Error {
	return &Error{Code: ErrEntityExists, Message: fmt.Sprintf("entity %d already exists", entity), Entity: entity}
}

func errComponentNotFound(entity Entity, component string) *Error {
	return &Error{Code: ErrComponentNotFound, Message: fmt.Sprintf("component not found for entity %d", entity), Entity: entity, Component: component}
}

func errComponentExists(entity Entity, component string) *Error {
	return &Error{Code: ErrComponentExists, Message: fmt.Sprintf("entity %d already has component", entity), Entity: entity, Component: component}
}

func errStorageMismatch(component, requested string) *Error {
	return &Error{
		Code:      ErrStorageMismatch,
		Message:   fmt.Sprintf("storage holds %s, requested %s", component, requested),
		Component: component,
		Entity:    Null,
	}
}

func errIndexOutOfRange(index, size int) *Error {
	return &Error{Code: ErrIndexOutOfRange, Message: fmt.Sprintf("index %d out of range [0, %d)", index, size), Entity: Null}
}

func errInvalidArgument(message string) *Error {
	return &Error{Code: ErrInvalidArgument, Message: message, Entity: Null}
}
