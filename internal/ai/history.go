package ai

// TurnRole tags who produced a conversation turn.
type TurnRole string

const (
	TurnUser     TurnRole = "user"     // requester
	TurnModel    TurnRole = "model"    // responder
	TurnFunction TurnRole = "function" // tool result
)

// ToolCall is a structured function invocation emitted by the model.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult is the application's answer to a ToolCall.
type ToolResult struct {
	Name     string `json:"name"`
	Response any    `json:"response"`
}

// Turn is one entry of a conversation history.
type Turn struct {
	Role       TurnRole
	Text       string
	ToolCall   *ToolCall
	ToolResult *ToolResult
}

// UserTurn builds a plain text requester turn.
func UserTurn(text string) Turn { return Turn{Role: TurnUser, Text: text} }

// ModelTurn builds a plain text responder turn.
func ModelTurn(text string) Turn { return Turn{Role: TurnModel, Text: text} }

// FunctionTurn builds a tool-result turn.
func FunctionTurn(name string, response any) Turn {
	return Turn{Role: TurnFunction, ToolResult: &ToolResult{Name: name, Response: response}}
}

// History is a bounded conversation log for one agent/provider pairing.
//
// Trimming never splits an exchange group (user turn, optional model tool
// call, optional function result, optional model follow-up): a function or
// tool-call turn with no preceding user turn is an invalid request for the
// generation endpoint.
type History struct {
	max   int
	seed  []Turn
	turns []Turn
}

// NewHistory creates a history capped at max turns, seeded with the given
// initial turns. Reset restores the seed, not an empty log.
func NewHistory(max int, seed ...Turn) *History {
	h := &History{max: max, seed: append([]Turn(nil), seed...)}
	h.turns = append([]Turn(nil), h.seed...)
	return h
}

// Append adds a turn and trims the history if it exceeds the cap.
func (h *History) Append(t Turn) {
	h.turns = append(h.turns, t)
	h.trim()
}

// Len returns the current number of turns.
func (h *History) Len() int { return len(h.turns) }

// Snapshot returns a copy of the stored turns in order.
func (h *History) Snapshot() []Turn {
	return append([]Turn(nil), h.turns...)
}

// Reset restores the history to its seed turns.
func (h *History) Reset() {
	h.turns = append(h.turns[:0:0], h.seed...)
}

// trim drops the oldest turns once the cap is exceeded, extending the kept
// window backward so it starts at the user turn opening an exchange group.
func (h *History) trim() {
	if h.max <= 0 || len(h.turns) <= h.max {
		return
	}
	cut := len(h.turns) - h.max
	start := cut
	for start > 0 && !h.groupStart(start) {
		start--
	}
	if start == 0 {
		return
	}
	h.turns = append(h.turns[:0:0], h.turns[start:]...)
}

// groupStart reports whether the turn at i can open a self-contained
// exchange. Function results and model tool-call continuations cannot: they
// only make sense after the user turn that originated them.
func (h *History) groupStart(i int) bool {
	return h.turns[i].Role == TurnUser
}
