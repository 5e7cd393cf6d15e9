package aggregator

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"kondate-shopper/internal/menu"
)

//go:embed aggregator_prompt.md
var aggregatorPrompt string

var promptTemplate = template.Must(template.New("aggregator").Parse(aggregatorPrompt))

type promptData struct {
	Categories string
	Weekdays   string
	Input      string
}

// BuildPrompt renders the aggregation instructions around the combined
// ingredient blocks.
func BuildPrompt(rawText string) (string, error) {
	data := promptData{
		Categories: strings.Join(menu.Categories, "、"),
		Weekdays:   "月、火、水、木、金、土、日",
		Input:      rawText,
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render aggregator prompt: %w", err)
	}
	return buf.String(), nil
}
