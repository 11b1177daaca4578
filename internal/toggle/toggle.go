// Package toggle implements add-if-absent / remove-if-present membership changes
// on set-valued relationship fields.
//
// Sets are slices with unique members in insertion order, matching how the
// stores persist them. Every function returns a fresh slice and never mutates
// its input.
package toggle

import (
	"slices"

	"github.com/and161185/tunehub/internal/model"
)

// Contains reports whether member is in set.
func Contains[T comparable](set []T, member T) bool {
	return slices.Contains(set, member)
}

// Toggle removes member if present, otherwise appends it, and reports which
// mutation was applied.
func Toggle[T comparable](set []T, member T) ([]T, model.SetOp) {
	if Contains(set, member) {
		return Remove(set, member), model.OpRemove
	}
	return Add(set, member), model.OpAdd
}

// Add appends member unless it is already present.
func Add[T comparable](set []T, member T) []T {
	out := make([]T, 0, len(set)+1)
	out = append(out, set...)
	if !Contains(set, member) {
		out = append(out, member)
	}
	return out
}

// Remove drops every occurrence of member.
func Remove[T comparable](set []T, member T) []T {
	out := make([]T, 0, len(set))
	for _, v := range set {
		if v != member {
			out = append(out, v)
		}
	}
	return out
}

// Apply performs op on set. Unknown ops return an unchanged copy.
func Apply[T comparable](set []T, op model.SetOp, member T) []T {
	switch op {
	case model.OpAdd:
		return Add(set, member)
	case model.OpRemove:
		return Remove(set, member)
	}
	return slices.Clone(set)
}
