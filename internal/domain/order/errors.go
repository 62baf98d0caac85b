package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// RefKind names the kind of entity a reference error is about.
type RefKind string

const (
	RefOrder    RefKind = "order"
	RefMenuItem RefKind = "menu_item"
	RefAddon    RefKind = "addon"
	RefLineItem RefKind = "line_item"
)

// Sentinel errors for caller input validation.
var (
	// ErrInvalidQuantity is returned when a requested quantity is not a
	// positive integer.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrAddonAlreadyAttached is returned when attaching an add-on that is
	// already present on the line item.
	ErrAddonAlreadyAttached = errors.New("add-on already attached to line item")
	// ErrConcurrentModification is returned when the atomic unit detected a
	// conflicting concurrent write. The caller may retry the mutation.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// ReferenceNotFoundError indicates a referenced entity does not exist.
type ReferenceNotFoundError struct {
	Kind RefKind
	ID   string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InactiveReferenceError indicates a referenced entity exists but is disabled
// for sale.
type InactiveReferenceError struct {
	Kind RefKind
	ID   string
}

func (e *InactiveReferenceError) Error() string {
	return fmt.Sprintf("%s %s is not active", e.Kind, e.ID)
}

// OrderNotOpenError indicates a mutation targeted an order that is no longer
// open.
type OrderNotOpenError struct {
	OrderID string
	Status  Status
}

func (e *OrderNotOpenError) Error() string {
	return fmt.Sprintf("order %s is %s, only open orders can be modified", e.OrderID, e.Status)
}

// PersistenceError wraps a storage failure that is not part of the caller
// taxonomy. It is fatal for the current mutation and not retried.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
