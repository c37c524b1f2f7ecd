package hooking

import (
	"fmt"
	"log"
)

// A LogHook writes one line for every event it is invoked with.
//
// Each line has the form
//
//	domain,position,item[,detail]
type LogHook struct {
	*log.Logger

	// Positions restricts the hook to the listed positions. An empty list
	// means every position is logged.
	Positions []*HookPos
}

// NewLogHook creates a LogHook that writes with the given logger.
func NewLogHook(logger *log.Logger, positions ...*HookPos) *LogHook {
	return &LogHook{
		Logger:    logger,
		Positions: positions,
	}
}

// Func logs the hook context.
func (h *LogHook) Func(ctx HookCtx) {
	if !h.accepts(ctx.Pos) {
		return
	}

	domain := ""
	if ctx.Domain != nil {
		domain = ctx.Domain.Name()
	}

	line := fmt.Sprintf("%s,%s,%v", domain, ctx.Pos.Name, ctx.Item)
	if ctx.Detail != nil {
		line += fmt.Sprintf(",%v", ctx.Detail)
	}

	h.Print(line)
}

func (h *LogHook) accepts(pos *HookPos) bool {
	if len(h.Positions) == 0 {
		return true
	}

	for _, p := range h.Positions {
		if p == pos {
			return true
		}
	}

	return false
}
