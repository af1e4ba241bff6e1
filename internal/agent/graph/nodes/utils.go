package nodes

import (
	"github.com/tripgenie/agent-server/internal/agent/model"
)

const (
	NodeInputConverter = "InputConverter"
	NodeChatModel      = "ChatModel"
	NodeToolExecutor   = "ToolExecutor"
)

const DefaultMaxToolRounds = 5

// ===== Small helpers to keep handlers simple/readable =====
// NormalizeMaxToolRounds returns a sane default when the provided value is invalid.
func NormalizeMaxToolRounds(n int) int {
	if n <= 0 {
		return DefaultMaxToolRounds
	}
	return n
}

// checkAndMarkToolLimit marks the state once the completed tool rounds reach
// the cap. Returns true only on the call that marks it.
func checkAndMarkToolLimit(state *model.AppState, max int) bool {
	max = NormalizeMaxToolRounds(max)
	if !state.ToolLimitReached && state.ToolRounds >= max {
		state.ToolLimitReached = true
		return true
	}
	return false
}

// incrementToolRound records one ToolExecutor run and returns the new count.
func incrementToolRound(state *model.AppState) int {
	state.ToolRounds++
	return state.ToolRounds
}
