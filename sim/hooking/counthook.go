package hooking

import (
	"sync"
)

// PosCountHook counts how many times each hook position is triggered.
type PosCountHook struct {
	lock     sync.Mutex
	posNames []string
	count    map[string]uint64
}

// NewPosCountHook creates a new PosCountHook.
func NewPosCountHook() *PosCountHook {
	return &PosCountHook{
		count: make(map[string]uint64),
	}
}

// Func counts the position of the context.
func (h *PosCountHook) Func(ctx HookCtx) {
	h.lock.Lock()
	defer h.lock.Unlock()

	name := ctx.Pos.Name
	if _, ok := h.count[name]; !ok {
		h.posNames = append(h.posNames, name)
	}

	h.count[name]++
}

// PosNames returns the names of all the positions seen, in order of first
// appearance.
func (h *PosCountHook) PosNames() []string {
	h.lock.Lock()
	defer h.lock.Unlock()

	return append([]string(nil), h.posNames...)
}

// Count returns the number of times the position has been triggered.
func (h *PosCountHook) Count(pos *HookPos) uint64 {
	h.lock.Lock()
	defer h.lock.Unlock()

	return h.count[pos.Name]
}

// Reset clears all the counts.
func (h *PosCountHook) Reset() {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.posNames = nil
	h.count = make(map[string]uint64)
}
