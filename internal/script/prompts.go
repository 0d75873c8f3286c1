package script

import (
	"fmt"
	"strings"

	"newsreel/internal/models"
)

const (
	maxPromptTitleLen   = 350
	maxPromptSummaryLen = 1600

	minNarrationWords = 35
	maxNarrationWords = 95
)

const narrationSystemPrompt = `You are writing short voiceover scripts for vertical sports videos. You MUST use only facts present in the provided headline and summary, rephrased in your own words rather than copied. Do not invent details. If details are limited, keep wording general and clearly avoid specifics not present. Return ONLY valid JSON with this exact shape: {"narration_text": "35-95 words, spoken style, no hashtags, no emojis, no weird symbols", "on_screen_hook": "optional, max 8 words"}`

const rewriteSystemPrompt = `You are revising a voiceover script for a vertical sports video. The previous draft repeats the source wording too closely. Rewrite it in your own fresh phrasing so it no longer mirrors the headline or summary text, while still using only facts present in them, keeping the 35-95 word spoken style. Return ONLY valid JSON with this exact shape: {"narration_text": "...", "on_screen_hook": "optional, max 8 words"}`

// NarrationPrompt builds the system and user prompts for generating a clip
// narration from a candidate story.
func NarrationPrompt(item models.CandidateItem) (systemPrompt string, userPrompt string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Headline: %s\n", truncate(item.Title, maxPromptTitleLen))
	fmt.Fprintf(&b, "Summary: %s\n", truncate(item.Summary, maxPromptSummaryLen))
	return narrationSystemPrompt, b.String()
}

// RewritePrompt builds the prompts for a paraphrase rewrite of a draft that
// came back too close to the source text.
func RewritePrompt(item models.CandidateItem, draft string) (systemPrompt string, userPrompt string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Headline: %s\n", truncate(item.Title, maxPromptTitleLen))
	fmt.Fprintf(&b, "Summary: %s\n", truncate(item.Summary, maxPromptSummaryLen))
	b.WriteString("Previous draft:\n")
	b.WriteString(draft)
	return rewriteSystemPrompt, b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// narrationPayload is the JSON object models are instructed to return.
type narrationPayload struct {
	NarrationText string `json:"narration_text"`
	OnScreenHook  string `json:"on_screen_hook"`
}

// extractJSON strips markdown code fences from a string that may contain
// JSON wrapped in ```json ... ``` or ``` ... ``` blocks. This handles the
// common case where LLMs return JSON inside code fences.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	// Try ```json ... ``` first.
	if after, found := strings.CutPrefix(s, "```json"); found {
		if idx := strings.LastIndex(after, "```"); idx >= 0 {
			after = after[:idx]
		}
		return strings.TrimSpace(after)
	}

	// Try plain ``` ... ```.
	if after, found := strings.CutPrefix(s, "```"); found {
		if idx := strings.LastIndex(after, "```"); idx >= 0 {
			after = after[:idx]
		}
		return strings.TrimSpace(after)
	}

	return s
}

// shortDraftPadding is appended when a draft comes back under the minimum
// word count, keeping the narration honest about its thin source material.
const shortDraftPadding = " This update is based on the story details currently available."

// normalizeNarration cleans a model draft into final narration form: strips
// hashtags, collapses whitespace and enforces the 35-95 word window.
// Overlong drafts are truncated; short drafts are padded once, and drafts
// still under the minimum after padding are rejected with ok=false.
func normalizeNarration(draft string) (string, bool) {
	narration := strings.Join(strings.Fields(draft), " ")
	narration = strings.ReplaceAll(narration, "#", "")

	words := strings.Fields(narration)
	switch {
	case len(words) > maxNarrationWords:
		narration = truncateWords(words)
	case len(words) < minNarrationWords:
		narration = strings.TrimSpace(narration + shortDraftPadding)
		words = strings.Fields(narration)
		if len(words) > maxNarrationWords {
			narration = truncateWords(words)
		}
	}

	if len(strings.Fields(narration)) < minNarrationWords {
		return narration, false
	}
	return narration, true
}

func truncateWords(words []string) string {
	s := strings.Join(words[:maxNarrationWords], " ")
	return strings.TrimRight(s, ".,;:!?") + "."
}
