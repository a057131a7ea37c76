package agent

import "strings"

type summarySection int

const (
	sectionSummary summarySection = iota
	sectionInsights
	sectionRecommendations
	sectionRisks
)

// parseNarrative splits free-form provider output into the four summary
// buckets. Section headers are matched by keyword, case-insensitively, so the
// parser tolerates providers that decorate headers with markdown or numbering.
// Bullet lines under a list section populate that list; everything else
// accumulates into the running summary paragraph.
func parseNarrative(text string) (summary string, insights, recommendations, risks []string) {
	current := sectionSummary
	var summaryParts []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if section, ok := matchSectionHeader(line); ok {
			current = section
			// Header lines sometimes carry content after the colon
			if rest := headerRemainder(line); rest != "" {
				appendTo(current, rest, &summaryParts, &insights, &recommendations, &risks)
			}
			continue
		}

		appendTo(current, trimBullet(line), &summaryParts, &insights, &recommendations, &risks)
	}

	return strings.Join(summaryParts, " "), insights, recommendations, risks
}

// matchSectionHeader reports whether the line looks like a section header and
// which bucket it opens. A header is a short line containing one of the
// section keywords, typically ending in a colon.
func matchSectionHeader(line string) (summarySection, bool) {
	lower := strings.ToLower(line)

	// Only treat short colon-terminated or keyword-only lines as headers so
	// body sentences containing "risk" are not misread as section breaks.
	head := lower
	if idx := strings.Index(lower, ":"); idx >= 0 {
		head = lower[:idx]
	} else if len(strings.Fields(lower)) > 4 {
		return 0, false
	}
	head = strings.Trim(head, "#*- 0123456789.")

	switch {
	case strings.Contains(head, "summary"):
		return sectionSummary, true
	case strings.Contains(head, "insight"):
		return sectionInsights, true
	case strings.Contains(head, "recommendation"):
		return sectionRecommendations, true
	case strings.Contains(head, "risk"):
		return sectionRisks, true
	}
	return 0, false
}

func headerRemainder(line string) string {
	if idx := strings.Index(line, ":"); idx >= 0 {
		return strings.TrimSpace(line[idx+1:])
	}
	return ""
}

func trimBullet(line string) string {
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return line
}

func appendTo(section summarySection, text string, summaryParts, insights, recommendations, risks *[]string) {
	if text == "" {
		return
	}
	switch section {
	case sectionInsights:
		*insights = append(*insights, text)
	case sectionRecommendations:
		*recommendations = append(*recommendations, text)
	case sectionRisks:
		*risks = append(*risks, text)
	default:
		*summaryParts = append(*summaryParts, text)
	}
}
