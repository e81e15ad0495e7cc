package extract

import (
	"sort"
	"strings"
)

// Difference hints attached to fuzzy matches.
const (
	HintWhitespace = "whitespace"
	HintCase       = "case"
	HintStructure  = "similar structure"
)

// maxFuzzyMatches bounds the diagnostics kept per miss.
const maxFuzzyMatches = 5

// minFuzzySimilarity is the score floor for reporting a candidate.
const minFuzzySimilarity = 50

// FuzzyMatch describes a near-miss region for a failed FIND.
type FuzzyMatch struct {
	// Line is the 1-based line number where the candidate window starts.
	Line int
	// Similarity is the integer percentage of window lines that match
	// after normalization.
	Similarity int
	// Preview is the first line of the candidate window, truncated.
	Preview string
	// Hint classifies the difference: whitespace, case, or similar
	// structure.
	Hint string
}

// normalizeLine trims leading and trailing whitespace and collapses
// internal whitespace runs to single spaces.
func normalizeLine(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

// FindFuzzyMatches scores every window of len(find lines) consecutive
// content lines against the FIND text and returns the best candidates,
// highest similarity first. These are diagnostics only; no fuzzy
// application ever occurs.
func FindFuzzyMatches(content, find string) []FuzzyMatch {
	findLines := strings.Split(strings.TrimSpace(find), "\n")
	if len(findLines) == 0 || (len(findLines) == 1 && findLines[0] == "") {
		return nil
	}

	normFind := make([]string, len(findLines))
	for i, l := range findLines {
		normFind[i] = normalizeLine(l)
	}

	contentLines := strings.Split(content, "\n")
	if len(contentLines) < len(findLines) {
		return nil
	}

	var matches []FuzzyMatch
	for start := 0; start+len(findLines) <= len(contentLines); start++ {
		var norm, fold int
		for i, want := range normFind {
			gotNorm := normalizeLine(contentLines[start+i])
			if gotNorm == want {
				norm++
			}
			if strings.EqualFold(gotNorm, want) {
				fold++
			}
		}

		score := 100 * fold / len(findLines)
		if score < minFuzzySimilarity {
			continue
		}

		hint := HintStructure
		switch {
		case norm == len(findLines):
			// Only whitespace normalization was needed.
			hint = HintWhitespace
		case fold == len(findLines):
			hint = HintCase
		}

		matches = append(matches, FuzzyMatch{
			Line:       start + 1,
			Similarity: score,
			Preview:    preview(strings.TrimSpace(contentLines[start]), 80),
			Hint:       hint,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > maxFuzzyMatches {
		matches = matches[:maxFuzzyMatches]
	}
	return matches
}
