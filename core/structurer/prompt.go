package structurer

import (
	"fmt"
	"strings"
)

// MaxUnits is the upper bound on units the prompt asks the model for.
const MaxUnits = 10

const instructions = `Divide the text below into no more than %d meaningful units.
Answer with a JSON array only, with no other text. Every element must be an object with exactly these fields:
- "id": an integer, unique within the array, starting from 1 and following the order of the text
- "type": a lowercase snake_case label describing the meaning of the unit
- "content": the part of the text the unit covers

Labels should be specific. Units that belong to the same concept get detailed sub-labels, for example season_spring, season_summer, season_autumn and season_winter rather than a bare season. Prefer names like xxx_research_step or xxx_brainstorming_process over abstract, generic names.`

const exampleInstructions = `If a unit has the same meaning as a unit of the previous structuring example below, reuse that unit's type label.

Example of previous structuring:
`

// BuildPrompt returns the segmentation prompt for text. When previousExample
// is not empty it is embedded verbatim, preceded by an instruction to reuse
// its type labels.
func BuildPrompt(text, previousExample string) string {
	var b strings.Builder
	fmt.Fprintf(&b, instructions, MaxUnits)

	if strings.TrimSpace(previousExample) != "" {
		b.WriteString("\n\n")
		b.WriteString(exampleInstructions)
		b.WriteString(previousExample)
	}

	b.WriteString("\n\nHere's the text to structure:\n\n")
	b.WriteString(text)
	return b.String()
}
