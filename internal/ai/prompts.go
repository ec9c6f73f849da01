package ai

import (
	_ "embed"
	"strings"
)

//go:embed prompts/classify.md
var classifyTemplate string

//go:embed prompts/summarize.md
var summarizeTemplate string

func buildClassifyPrompt(taxonomy, description string) string {
	prompt := strings.ReplaceAll(classifyTemplate, "{{taxonomy}}", taxonomy)
	return strings.ReplaceAll(prompt, "{{description}}", description)
}

func buildSummarizePrompt(text string) string {
	return strings.ReplaceAll(summarizeTemplate, "{{text}}", text)
}

// extractJSON strips markdown fences and any prose around the first JSON object.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start > 0 && end > start {
		raw = raw[start : end+1]
	}
	return raw
}
