// Package prompt assembles the augmented prompt handed to the
// conversational model, tying fetched page contents to numbered
// citations. Building is pure string work with no I/O.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/webaugment/internal/augment"
)

// Build renders web contents into a citation-annotated prompt. Citation
// numbers are assigned strictly by the order of contents, which is
// fetch-completion order, and are returned alongside the prompt so the
// caller can render source links. Empty contents yield a prompt with no
// reference blocks and zero citations.
func Build(userQuestion string, contents []augment.WebContent) (string, []augment.Citation) {
	return buildAt(userQuestion, contents, time.Now())
}

// buildAt is Build with an injectable clock.
func buildAt(userQuestion string, contents []augment.WebContent, now time.Time) (string, []augment.Citation) {
	var b strings.Builder
	citations := make([]augment.Citation, 0, len(contents))

	fmt.Fprintf(&b, "Current date and time: %s\n\n", now.Format("Monday, January 2, 2006 15:04 MST"))

	if len(contents) > 0 {
		b.WriteString("Use the following web search results to answer the question. ")
		b.WriteString("Cite sources inline with bracketed numbers like [1]; ")
		b.WriteString("combine multiple sources as [1][2]. ")
		b.WriteString("If none of the results are relevant, answer from your general knowledge and say so.\n\n")

		for i, content := range contents {
			number := i + 1
			fmt.Fprintf(&b, "[%d] %s\n", number, content.Title)
			fmt.Fprintf(&b, "URL: %s\n", content.URL)
			fmt.Fprintf(&b, "%s\n\n", content.Content)

			citations = append(citations, augment.Citation{
				Number:  number,
				Title:   content.Title,
				URL:     content.URL,
				Excerpt: content.Excerpt,
			})
		}
	}

	fmt.Fprintf(&b, "Question: %s", userQuestion)
	return b.String(), citations
}
