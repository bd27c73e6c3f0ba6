package utils

import (
	"reflect"
	"sort"
)

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func Ptr[T any](v T) *T {
	return &v
}

// DereferencePtr returns the zero value when p is nil.
func DereferencePtr[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Coalesce returns the first non-nil pointer (nil when both are nil).
func Coalesce[T any](a, b *T) *T {
	if a != nil {
		return a
	}
	return b
}

func UniqueSlice[T comparable](values []T) []T {
	seen := make(map[T]bool, len(values))
	out := make([]T, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func SortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// GetTypeName returns the struct name of T (used for redis cache keys).
func GetTypeName[T any]() string {
	var v T
	return reflect.TypeOf(v).Name()
}
