package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVerificationPass(t *testing.T) {
	result, reason := ParseVerification("PASS")
	assert.Equal(t, VerifyPass, result)
	assert.Empty(t, reason)
	assert.True(t, result.IsPass())
	assert.False(t, result.IsHardFail())
}

func TestParseVerificationPassWithWarnings(t *testing.T) {
	result, reason := ParseVerification("PASS_WITH_WARNINGS: Minor style issues")
	assert.Equal(t, VerifyPassWithWarnings, result)
	assert.Equal(t, "Minor style issues", reason)
	assert.True(t, result.IsPass())
}

func TestParseVerificationFailSoft(t *testing.T) {
	result, reason := ParseVerification("FAIL_SOFT: Potential memory leak")
	assert.Equal(t, VerifyFailSoft, result)
	assert.Equal(t, "Potential memory leak", reason)
	assert.False(t, result.IsPass())
	assert.False(t, result.IsHardFail())
}

func TestParseVerificationFailHard(t *testing.T) {
	result, reason := ParseVerification("FAIL_HARD: Syntax errors on line 42")
	assert.Equal(t, VerifyFailHard, result)
	assert.True(t, result.IsHardFail())
	assert.Equal(t, "Syntax errors on line 42", reason)
}

func TestParseVerificationSpellings(t *testing.T) {
	cases := []struct {
		in   string
		want VerificationResult
	}{
		{"pass_with_warnings", VerifyPassWithWarnings},
		{"PASS WITH WARNINGS: notes", VerifyPassWithWarnings},
		{"FAIL SOFT: x", VerifyFailSoft},
		{"fail_soft", VerifyFailSoft},
		{"FAIL HARD: y", VerifyFailHard},
		{"fail_hard", VerifyFailHard},
		{"passed", VerifyPass},
		{"Pass.", VerifyPass},
	}
	for _, c := range cases {
		got, _ := ParseVerification(c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestParseVerificationBareFailIsHard(t *testing.T) {
	result, reason := ParseVerification("FAIL: Syntax errors")
	assert.Equal(t, VerifyFailHard, result)
	assert.Equal(t, "Syntax errors", reason)
}

func TestParseVerificationUnclear(t *testing.T) {
	result, reason := ParseVerification("Hmm, I'm not sure about this one")
	assert.Equal(t, VerifyFailHard, result)
	assert.Equal(t, "Unclear verification response", reason)
}

func TestParseVerificationBodyScan(t *testing.T) {
	result, _ := ParseVerification("The code looks good and should pass review.")
	assert.Equal(t, VerifyPass, result)

	result, _ = ParseVerification("Unfortunately this would fail to compile.")
	assert.Equal(t, VerifyFailHard, result)
}

func TestVerificationResultString(t *testing.T) {
	assert.Equal(t, "pass_with_warnings", VerifyPassWithWarnings.String())
	assert.Equal(t, "fail_hard", VerifyFailHard.String())
}
