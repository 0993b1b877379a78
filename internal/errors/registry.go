package errors

// Registered error codes.
const (
	CodeUnsupportedWatchConfig = "E001"
	CodePreloadDisabled        = "E002"
	CodeUnsafeMethod           = "E003"
	CodeEventQueueFull         = "E004"
	CodeMalformedFrame         = "E005"
	CodeAlreadyStarted         = "E006"
)

// template is a registered error definition.
type template struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their definitions.
var registry = map[string]template{
	CodeUnsupportedWatchConfig: {
		Category:   CategoryConfig,
		Message:    "unsupported watch configuration",
		Suggestion: "batched watching requires all fields to resolve to the same delay; set one delay on the form instead of per-field delays",
	},
	CodePreloadDisabled: {
		Category:   CategoryPreload,
		Message:    "preloading is disabled",
		Suggestion: "enable speculative requests on the request layer before observing links",
	},
	CodeUnsafeMethod: {
		Category:   CategoryPreload,
		Message:    "element resolves to a non-idempotent method",
		Suggestion: "only GET and HEAD links may be preloaded; remove the preload marker or change the method",
	},
	CodeEventQueueFull: {
		Category:   CategorySession,
		Message:    "event queue full",
		Suggestion: "the session loop is not keeping up; raise MaxEventQueue or reduce client event volume",
	},
	CodeMalformedFrame: {
		Category:   CategoryProtocol,
		Message:    "malformed protocol frame",
		Suggestion: "check that the thin client and server run compatible protocol versions",
	},
	CodeAlreadyStarted: {
		Category:   CategoryConfig,
		Message:    "component already started",
		Suggestion: "call Stop before starting again",
	},
}
