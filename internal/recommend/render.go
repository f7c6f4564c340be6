package recommend

import (
	"fmt"
	"strings"
)

// NoRecommendations is shown when there is nothing to display.
const NoRecommendations = "No recommendations could be generated or there was an error processing the response. Please check your input or try again."

// Render formats a set as numbered Markdown blocks.
func Render(set Set) string {
	if len(set) == 0 {
		return NoRecommendations + "\n"
	}
	var sb strings.Builder
	for i, rec := range set {
		fmt.Fprintf(&sb, "**%d. Intervention:** %s\n\n", i+1, rec.Intervention)
		fmt.Fprintf(&sb, "**Rationale:** %s\n\n", rec.Rationale)
		fmt.Fprintf(&sb, "**Confidence:** %s\n\n", rec.Confidence)
		sb.WriteString("---\n\n")
	}
	return sb.String()
}
