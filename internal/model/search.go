package model

import "time"

// SearchParams is the caller-facing filter vocabulary of event listings.
// Nil / empty fields do not constrain the result.
type SearchParams struct {
	Text          string
	Categories    []int64
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool

	// Admin listing only.
	States     []State
	Initiators []int64

	Sort EventSort
	From int
	Size int
}

// Offset is the first row of the requested page. Offsets are aligned to
// whole pages: from=15,size=10 addresses the second page.
func (p SearchParams) Offset() int {
	if p.Size <= 0 {
		return 0
	}
	return (p.From / p.Size) * p.Size
}

// EventFilter is a fully resolved store query: the date window is always set.
type EventFilter struct {
	Text          string
	Categories    []int64
	Paid          *bool
	RangeStart    time.Time
	RangeEnd      time.Time
	OnlyAvailable bool
	States        []State
	Initiators    []int64
}
