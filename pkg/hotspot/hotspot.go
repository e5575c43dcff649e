// Package hotspot counts how often each file changed up to a position in
// history.
package hotspot

import (
	"cmp"
	"slices"
)

// Entry is a path and the number of change sets that contain it.
type Entry struct {
	Path  string `json:"path"  yaml:"path"`
	Count int    `json:"count" yaml:"count"`
}

// Compute counts paths over sets. The result is sorted by count, highest
// first; ties keep the order in which paths were first seen.
func Compute(sets [][]string) []Entry {
	var tr Tracker

	for _, set := range sets {
		tr.Push(set)
	}

	return tr.Entries()
}

// Top returns at most n leading entries. n <= 0 returns all of them.
func Top(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}

	return entries[:n]
}

// seen orders paths by the set and slot where they first appeared.
type seen struct {
	depth int
	slot  int
}

// Tracker maintains the counts of a stack of change sets so stepping one
// commit forward or back costs one set instead of a full recount. Its
// Entries equal Compute over the pushed sets.
type Tracker struct {
	sets   [][]string
	counts map[string]int
	first  map[string]seen
}

// Push adds the change set of the next position.
func (tr *Tracker) Push(set []string) {
	if tr.counts == nil {
		tr.counts = make(map[string]int)
		tr.first = make(map[string]seen)
	}

	depth := len(tr.sets)
	tr.sets = append(tr.sets, set)

	for slot, path := range set {
		if _, ok := tr.first[path]; !ok {
			tr.first[path] = seen{depth: depth, slot: slot}
		}

		tr.counts[path]++
	}
}

// Pop removes the most recent change set. It reports false when empty.
func (tr *Tracker) Pop() bool {
	if len(tr.sets) == 0 {
		return false
	}

	set := tr.sets[len(tr.sets)-1]
	tr.sets = tr.sets[:len(tr.sets)-1]

	for _, path := range set {
		tr.counts[path]--

		if tr.counts[path] == 0 {
			delete(tr.counts, path)
			delete(tr.first, path)
		}
	}

	return true
}

// Reset replaces the tracked sets.
func (tr *Tracker) Reset(sets [][]string) {
	tr.sets = nil
	tr.counts = nil
	tr.first = nil

	for _, set := range sets {
		tr.Push(set)
	}
}

// Len returns the number of pushed sets.
func (tr *Tracker) Len() int { return len(tr.sets) }

// Entries returns the current counts in Compute order.
func (tr *Tracker) Entries() []Entry {
	entries := make([]Entry, 0, len(tr.counts))

	for path, count := range tr.counts {
		entries = append(entries, Entry{Path: path, Count: count})
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		fa, fb := tr.first[a.Path], tr.first[b.Path]
		if c := cmp.Compare(fa.depth, fb.depth); c != 0 {
			return c
		}

		return cmp.Compare(fa.slot, fb.slot)
	})

	return entries
}
