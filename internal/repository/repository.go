// Package repository contains data access abstractions of the document store.
// Implementations live in subpackages (e.g. postgres).
package repository

import "errors"

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrStaleStatus is returned when a conditional status update finds the
	// row in a different status than expected.
	ErrStaleStatus = errors.New("status changed concurrently")
	// ErrDuplicate is returned on unique constraint violations.
	ErrDuplicate = errors.New("duplicate record")
)

// SortField is a whitelisted sort column.
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortName      SortField = "name"
	SortStatus    SortField = "status"
)

// Sort orders a listing.
type Sort struct {
	Field SortField
	Desc  bool
}

// DefaultSort is newest first.
var DefaultSort = Sort{Field: SortCreatedAt, Desc: true}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
