// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package dedup provides an ordered container that keeps at most one element
// per identity.
//
// Identity and order are separate concerns: the same function decides which
// elements are duplicates, the less function only decides where an element
// goes. A duplicate is removed before the new element is placed, so the
// current order never influences which copy survives: the newest one always
// does.
//
// Precondition: same must be an equivalence relation (reflexive, symmetric,
// transitive). With any other predicate the at-most-one-per-identity
// guarantee is undefined; Set does not detect or report it.
package dedup

import (
	"slices"
	"sort"
)

// Set is an ordered, identity-deduplicated collection. It is not safe for
// concurrent use.
type Set[T any] struct {
	items []T
	same  func(a, b T) bool
	less  func(a, b T) bool
}

// New returns an empty set.
func New[T any](same, less func(a, b T) bool) *Set[T] {
	return &Set[T]{same: same, less: less}
}

// Insert removes any element with the same identity as item, then inserts
// item at the position given by the current order and returns that index.
// Elements comparing equal under less keep insertion order.
//
// Insert is the only dedup-safe way to add elements.
func (s *Set[T]) Insert(item T) int {
	for i, existing := range s.items {
		if s.same(existing, item) {
			s.items = slices.Delete(s.items, i, i+1)
			break
		}
	}
	pos := s.upperBound(item)
	s.items = slices.Insert(s.items, pos, item)
	return pos
}

// InsertAll merges items into their ordered positions WITHOUT the identity
// scan. It can leave two elements with the same identity in the set; use
// Insert for each item when deduplication matters.
func (s *Set[T]) InsertAll(items ...T) {
	for _, item := range items {
		pos := s.upperBound(item)
		s.items = slices.Insert(s.items, pos, item)
	}
}

// SetOrder replaces the comparator and re-sorts. Identity is unaffected.
func (s *Set[T]) SetOrder(less func(a, b T) bool) {
	s.less = less
	sort.SliceStable(s.items, func(i, j int) bool {
		return less(s.items[i], s.items[j])
	})
}

// Remove deletes every element matching pred and returns how many went.
func (s *Set[T]) Remove(pred func(T) bool) int {
	before := len(s.items)
	s.items = slices.DeleteFunc(s.items, pred)
	return before - len(s.items)
}

// Len returns the number of elements.
func (s *Set[T]) Len() int { return len(s.items) }

// At returns the element at index i.
func (s *Set[T]) At(i int) T { return s.items[i] }

// Items returns a copy of the elements in order.
func (s *Set[T]) Items() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Each calls fn for every element in order until fn returns false.
func (s *Set[T]) Each(fn func(i int, item T) bool) {
	for i, item := range s.items {
		if !fn(i, item) {
			return
		}
	}
}

// upperBound returns the first index whose element sorts after item.
func (s *Set[T]) upperBound(item T) int {
	return sort.Search(len(s.items), func(i int) bool {
		return s.less(item, s.items[i])
	})
}
