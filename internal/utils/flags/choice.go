package flags

import (
	"fmt"
	"strings"
)

const (
	choiceSeparatorConstant     = "|"
	choicePlaceholderTemplate   = "<%s>"
	choiceUsageTemplateConstant = "`%s` %s"
)

// FormatChoiceUsage renders "`<a|B|c>` description" with the default choice upper-cased.
// Blank and repeated choices are skipped.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))
	rendered := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))

	for _, choice := range choices {
		trimmedChoice := strings.TrimSpace(choice)
		normalizedChoice := strings.ToLower(trimmedChoice)
		if len(normalizedChoice) == 0 {
			continue
		}
		if _, duplicate := seen[normalizedChoice]; duplicate {
			continue
		}
		seen[normalizedChoice] = struct{}{}
		if normalizedChoice == normalizedDefault {
			trimmedChoice = strings.ToUpper(trimmedChoice)
		}
		rendered = append(rendered, trimmedChoice)
	}

	placeholder := fmt.Sprintf(choicePlaceholderTemplate, strings.Join(rendered, choiceSeparatorConstant))
	return strings.TrimSpace(fmt.Sprintf(choiceUsageTemplateConstant, placeholder, strings.TrimSpace(description)))
}
