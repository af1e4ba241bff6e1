package observers

import (
	"unicode/utf8"

	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates the model, tool and prompt observers into one
// callbacks.Handler. Everything is logged at debug level.
func NewAllCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		Tool(newToolHandler()).
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()
}

// maxLoggedChars keeps prompts and tool payloads from flooding the log.
const maxLoggedChars = 2000

func clip(s string) string {
	if len(s) <= maxLoggedChars {
		return s
	}
	n := maxLoggedChars
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "...(truncated)"
}
