package extract

import (
	"regexp"
	"strings"
)

// VerificationResult classifies a verifier reply.
type VerificationResult int

const (
	VerifyPass VerificationResult = iota
	VerifyPassWithWarnings
	VerifyFailSoft
	VerifyFailHard
)

// String returns the underscored form used in logs.
func (r VerificationResult) String() string {
	switch r {
	case VerifyPass:
		return "pass"
	case VerifyPassWithWarnings:
		return "pass_with_warnings"
	case VerifyFailSoft:
		return "fail_soft"
	default:
		return "fail_hard"
	}
}

// IsPass reports whether the result counts as passing.
func (r VerificationResult) IsPass() bool {
	return r == VerifyPass || r == VerifyPassWithWarnings
}

// IsHardFail reports whether the result is a hard failure.
func (r VerificationResult) IsHardFail() bool { return r == VerifyFailHard }

var failReasonRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)fail[:\-\s]+(.+)`),
	regexp.MustCompile(`(?i)failed[:\-\s]+(.+)`),
	regexp.MustCompile(`(?i)reason[:\-\s]+(.+)`),
}

// ParseVerification maps a verifier reply to a result and an optional
// reason. Recognition is case-insensitive and accepts underscored and
// space-separated spellings. A bare FAIL is conservatively FailHard;
// unrecognized replies are FailHard with reason
// "Unclear verification response".
func ParseVerification(reply string) (VerificationResult, string) {
	trimmed := strings.TrimSpace(reply)
	lower := strings.ToLower(trimmed)
	normalized := strings.Join(strings.Fields(strings.ReplaceAll(lower, "_", " ")), " ")

	switch {
	case strings.HasPrefix(normalized, "pass with warnings"), strings.HasPrefix(normalized, "passwithwarnings"):
		return VerifyPassWithWarnings, reasonAfter(trimmed,
			"pass_with_warnings", "pass with warnings", "passwithwarnings")
	case strings.HasPrefix(normalized, "fail hard"), strings.HasPrefix(normalized, "failhard"):
		return VerifyFailHard, reasonAfter(trimmed, "fail_hard", "fail hard", "failhard")
	case strings.HasPrefix(normalized, "fail soft"), strings.HasPrefix(normalized, "failsoft"):
		return VerifyFailSoft, reasonAfter(trimmed, "fail_soft", "fail soft", "failsoft")
	}

	firstWord := ""
	if fields := strings.Fields(trimmed); len(fields) > 0 {
		firstWord = strings.Map(func(r rune) rune {
			if r >= 'a' && r <= 'z' {
				return r
			}
			return -1
		}, strings.ToLower(fields[0]))
	}

	switch firstWord {
	case "pass", "passed":
		return VerifyPass, ""
	case "fail", "failed":
		return VerifyFailHard, failureReason(trimmed)
	}

	// Last-resort scan of the body.
	switch {
	case strings.Contains(lower, "pass") && !strings.Contains(lower, "fail"):
		return VerifyPass, ""
	case strings.Contains(lower, "fail"):
		return VerifyFailHard, failureReason(trimmed)
	}
	return VerifyFailHard, "Unclear verification response"
}

// reasonAfter extracts the first line of text following one of the
// matched keyword spellings.
func reasonAfter(reply string, patterns ...string) string {
	lower := strings.ToLower(reply)
	for _, p := range patterns {
		pos := strings.Index(lower, p)
		if pos < 0 {
			continue
		}
		after := strings.TrimLeft(reply[pos+len(p):], ":- \t")
		if after == "" {
			continue
		}
		if line := strings.TrimSpace(strings.SplitN(after, "\n", 2)[0]); line != "" {
			return line
		}
	}
	return ""
}

// failureReason pulls a reason out of a bare FAIL reply.
func failureReason(reply string) string {
	for _, re := range failReasonRes {
		if m := re.FindStringSubmatch(reply); m != nil {
			reason := strings.TrimSpace(m[1])
			if reason != "" {
				return strings.TrimSpace(strings.SplitN(reason, "\n", 2)[0])
			}
		}
	}
	lines := strings.Split(reply, "\n")
	if len(lines) > 1 {
		return strings.TrimSpace(strings.Join(lines[1:], " "))
	}
	return ""
}
