package core

import (
	"regexp"
	"strconv"
	"strings"
)

// unsafeBranchChars matches characters that are not safe in git branch names.
var unsafeBranchChars = regexp.MustCompile(`[^a-zA-Z0-9._/-]`)

// collapseDashes collapses consecutive dashes into a single dash.
var collapseDashes = regexp.MustCompile(`-{2,}`)

// DefaultBranchPattern is the branch naming scheme used when configuration
// does not provide one: feature/<specId>-<index>_<slug>.
const DefaultBranchPattern = "feature/{spec}-{index}_{slug}"

// FormatBranchName applies a pattern with {spec}, {index}, and {slug}
// placeholders to produce a deterministic feature branch name for a task.
func FormatBranchName(pattern, specID string, index int, title string) string {
	if pattern == "" {
		pattern = DefaultBranchPattern
	}
	result := pattern
	result = strings.ReplaceAll(result, "{spec}", sanitizeBranchSegment(specID))
	result = strings.ReplaceAll(result, "{index}", strconv.Itoa(index))
	result = strings.ReplaceAll(result, "{slug}", sanitizeBranchSegment(title))
	return result
}

// sanitizeBranchSegment replaces spaces and special characters with dashes,
// collapses consecutive dashes, trims leading/trailing dashes, and lowercases
// the result. The output is safe for use as a git branch name segment.
func sanitizeBranchSegment(s string) string {
	s = strings.ToLower(s)
	s = unsafeBranchChars.ReplaceAllString(s, "-")
	s = collapseDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	return s
}
