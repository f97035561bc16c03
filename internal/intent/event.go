// Package intent implements the Intent Capture Pipeline: the only component
// that interprets hook payloads from the host assistant, turning tool-use
// and prompt events into Ranking Store writes and Prediction Engine
// feedback, fire-and-forget from the host's perspective.
package intent

// Kind is the closed set of event kinds the host assistant can emit, per
// spec.md §4.5 -- modeled as a tagged variant rather than a string compared
// ad hoc at every call site, per spec.md §9's "Polymorphism" note.
type Kind string

const (
	KindToolUsePost  Kind = "tool-use-post"
	KindPromptSubmit Kind = "prompt-submit"
	KindSessionStart Kind = "session-start"
)

// Tool is the closed set of tools a tool-use-post event can name.
type Tool string

const (
	ToolRead   Tool = "Read"
	ToolEdit   Tool = "Edit"
	ToolWrite  Tool = "Write"
	ToolGrep   Tool = "Grep"
	ToolGlob   Tool = "Glob"
	ToolSearch Tool = "Search"
	ToolBash   Tool = "Bash"
	ToolOther  Tool = "Other"
)

// Event is the envelope POSTed to /intent, per spec.md §6.
type Event struct {
	Kind      Kind              `json:"tool"` // reused: "Prompt" maps to KindPromptSubmit, a Tool name to KindToolUsePost
	ToolInput map[string]string `json:"tool_input"`
	Prompt    string            `json:"prompt"`
	SessionID string            `json:"session_id"`
	ToolUseID string            `json:"tool_use_id"`
	Timestamp int64             `json:"timestamp"` // epoch ms
	Project   string            `json:"project"`
}

// tool returns the event's Tool variant. Kind carries the raw "tool" field
// from the wire envelope; session-start and prompt-submit events are
// recognized by their reserved values ("session-start", "Prompt") rather
// than by a separate discriminator field, matching the envelope shape in
// spec.md §6.
func (e Event) tool() Tool {
	switch Tool(e.Kind) {
	case ToolRead, ToolEdit, ToolWrite, ToolGrep, ToolGlob, ToolSearch, ToolBash:
		return Tool(e.Kind)
	default:
		return ToolOther
	}
}

// paths extracts the file/directory paths named by this event's tool_input,
// per spec.md §4.5's "Path extraction per tool" table.
func (e Event) paths() []string {
	switch e.tool() {
	case ToolRead, ToolEdit, ToolWrite:
		if p := e.ToolInput["file_path"]; p != "" {
			return []string{p}
		}
		if p := e.ToolInput["path"]; p != "" {
			return []string{p}
		}
	case ToolGrep, ToolGlob, ToolSearch:
		if p := e.ToolInput["path"]; p != "" {
			return []string{p}
		}
		if p := e.ToolInput["include"]; p != "" {
			return []string{p}
		}
	}
	return nil
}

// synthesizedTag is the per-tool tag added alongside any INTENT_PATTERNS
// match, per spec.md §6's "Per-tool synthetic tags".
func (e Event) synthesizedTag() string {
	switch e.tool() {
	case ToolRead:
		return "#reading"
	case ToolEdit:
		return "#editing"
	case ToolWrite:
		return "#creating"
	case ToolGrep, ToolGlob, ToolSearch:
		return "#searching"
	case ToolBash:
		return "#running"
	default:
		return ""
	}
}

// isPromptSubmit reports whether this event's wire "tool" value names a
// prompt-submit event ("Prompt"), as distinct from a tool-use-post event.
func (e Event) isPromptSubmit() bool {
	return e.Kind == "Prompt" || e.Kind == KindPromptSubmit
}

func (e Event) isSessionStart() bool {
	return e.Kind == KindSessionStart
}
