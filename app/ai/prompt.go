package ai

import (
	"fmt"
	"strings"

	"github.com/inboxsage/inboxsage/app/database"
)

// promptContentLimit caps the article body sent to the model.
const promptContentLimit = 3000

// Summary preference values stored on a user profile.
const (
	DepthBasic      = "BASIC"
	DepthDeep       = "DEEP"
	DepthExtractive = "EXTRACTIVE"

	FormatBullets    = "BULLETS"
	FormatParagraphs = "PARAGRAPHS"
	FormatMixed      = "MIXED"

	StyleProfessional = "PROFESSIONAL"
	StyleCasual       = "CASUAL"
	StyleWitty        = "WITTY"
)

func depthInstruction(depth string) string {
	switch depth {
	case DepthDeep:
		return "in detail with context and implications"
	case DepthExtractive:
		return "by extracting the most important quotes and facts"
	default:
		return "in 2-3 sentences"
	}
}

func summaryMaxTokens(depth string) int {
	switch depth {
	case DepthDeep:
		return 400
	case DepthExtractive:
		return 300
	default:
		return 150
	}
}

func summaryTemperature(style string) float32 {
	switch style {
	case StyleCasual:
		return 0.7
	case StyleWitty:
		return 0.9
	default:
		return 0.3
	}
}

func formatInstruction(format string) string {
	switch format {
	case FormatBullets:
		return "Format the summary as bullet points."
	case FormatMixed:
		return "Format the summary as a short paragraph followed by bullet points."
	default:
		return "Format the summary as flowing paragraphs."
	}
}

func styleInstruction(style string) string {
	switch style {
	case StyleCasual:
		return "Use a casual, friendly tone."
	case StyleWitty:
		return "Use a witty, entertaining tone."
	default:
		return "Use a professional tone."
	}
}

func buildSummaryPrompt(title, content string, profile *database.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following article %s.\n", depthInstruction(profile.SummaryDepth))
	b.WriteString(formatInstruction(profile.SummaryFormat))
	b.WriteString("\n")
	b.WriteString(styleInstruction(profile.SummaryStyle))
	b.WriteString("\n")
	if lang := profile.LanguagePreference; lang != "" && lang != "en" {
		fmt.Fprintf(&b, "Write the summary in the language with ISO code %q.\n", lang)
	}
	fmt.Fprintf(&b, "\nTitle: %s\n\n%s", title, truncateContent(content))
	return b.String()
}

func buildTakeawaysPrompt(content string) string {
	return "Extract the 3-5 most important takeaways from the following article. " +
		"Return them as a JSON array of strings with no other text.\n\n" + truncateContent(content)
}

func buildSentimentPrompt(content string) string {
	return "Classify the overall sentiment of the following article as exactly one word: " +
		"positive, negative or neutral.\n\n" + truncateContent(content)
}

func truncateContent(content string) string {
	if len(content) > promptContentLimit {
		return content[:promptContentLimit]
	}
	return content
}
