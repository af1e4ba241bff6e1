package model

import (
	"github.com/cloudwego/eino/schema"
)

// AppState stores per-invocation state for the Eino Graph.
// Concurrency model:
//   - Registered as Graph Local State via compose.WithGenLocalState, so every
//     invocation gets a fresh value; nothing crosses requests.
//   - All reads/writes happen inside Eino state handlers or compose.ProcessState,
//     which serialize access.
type AppState struct {
	GraphName        string
	History          []*schema.Message // append-only within one invocation
	ToolRounds       int               // completed ToolExecutor runs
	ToolLimitReached bool              // set once the round cap is hit
	ToolCallIDSeq    int               // local sequence to synthesize tool_call_id when provider omits
	ModelInvocations int
	TotalCostUSD     float64
}

// QueryInput is the seed for both agent graphs: the user's (or the rendered
// replan) question.
type QueryInput struct {
	Question string `json:"question"`
}
