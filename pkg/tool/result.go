package tool

// Result is the terminal outcome of one tool invocation. Exactly one of
// (LLMContent non-empty) or (Error non-nil) holds: a successful result
// always carries LLMContent, a failed one always carries Error and never
// carries LLMContent.
type Result struct {
	// LLMContent is the text/JSON fed back to the model as the tool's output.
	LLMContent string

	// DisplayContent is an optional, richer rendering for a human-facing
	// surface (e.g. a diff instead of a raw file body). Empty means "use
	// LLMContent for display too".
	DisplayContent string

	// Error is set on failure. Its Kind() must be one of the ErrorKind
	// constants in this package (spec §8 invariant 6).
	Error TaggedError

	Metadata map[string]any
}

// Success reports whether the result represents a successful invocation.
func (r *Result) Success() bool {
	return r != nil && r.Error == nil
}

// NewSuccess builds a successful Result.
func NewSuccess(llmContent, displayContent string, metadata map[string]any) *Result {
	return &Result{
		LLMContent:     llmContent,
		DisplayContent: displayContent,
		Metadata:       metadata,
	}
}

// NewFailure builds a failed Result from a tagged error.
func NewFailure(err TaggedError) *Result {
	return &Result{Error: err}
}
