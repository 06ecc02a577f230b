package augment

// SearchIntent is the classifier's verdict for a single user turn.
// It is created once per turn and never mutated afterwards.
type SearchIntent struct {
	NeedsSearch bool     `json:"needsSearch"`
	Keywords    []string `json:"keywords,omitempty"`
	Links       []string `json:"links,omitempty"`
}

// Query returns the search query derived from the intent keywords.
func (s SearchIntent) Query() string {
	if len(s.Keywords) == 0 {
		return ""
	}
	return s.Keywords[0]
}

// SearchResultItem is one engine result: a title and a landing URL.
type SearchResultItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// WebContent is the distilled body of one successfully fetched page.
type WebContent struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Excerpt string `json:"excerpt,omitempty"`
}

// Citation ties a numbered reference in the augmented prompt back to its
// source. Numbers are 1-based in fetch-completion order and must never be
// reused or reordered once assigned.
type Citation struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Excerpt string `json:"excerpt,omitempty"`
}

// Result is the pipeline's only externally visible output. A nil *Result
// means augmentation was skipped or failed; the conversation proceeds
// without web context.
type Result struct {
	AugmentedPrompt string     `json:"augmented_prompt"`
	Citations       []Citation `json:"citations"`
}

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Phase labels the orchestrator's progress for the caller.
type Phase string

const (
	PhaseAnalyzing Phase = "analyzing"
	PhaseSearching Phase = "searching"
	PhaseFetching  Phase = "fetching"
	PhaseBuilding  Phase = "building"
)
