package shell

import "sync"

// Navigator moves the user to another route, optionally carrying state that
// lives only for that navigation.
type Navigator interface {
	Navigate(to Route, state any)
}

type Location struct {
	Route Route
	State any
}

// History is a Navigator that records every navigation.
type History struct {
	mu      sync.Mutex
	entries []Location
}

func NewHistory(start Route) *History {
	return &History{entries: []Location{{Route: start}}}
}

func (h *History) Navigate(to Route, state any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, Location{Route: to, State: state})
}

func (h *History) Current() Location {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == 0 {
		return Location{}
	}

	return h.entries[len(h.entries)-1]
}

// Back drops the current location and returns the previous one.
func (h *History) Back() Location {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) > 1 {
		h.entries = h.entries[:len(h.entries)-1]
	}
	if len(h.entries) == 0 {
		return Location{}
	}

	return h.entries[len(h.entries)-1]
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.entries)
}
