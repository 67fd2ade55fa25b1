package domain

import (
	"testing"

	"github.com/prelimth/examgate/internal/exam"
	"github.com/stretchr/testify/assert"
)

func TestIsValidCode_Free(t *testing.T) {
	assert.True(t, IsValidCode("FREE-A1B2-MATH"))
	assert.True(t, IsValidCode("FREE-0000-SCIENCE"))
	assert.True(t, IsValidCode("FREE-ZZZZ-ENGLISH"))
}

func TestIsValidCode_Advanced(t *testing.T) {
	assert.True(t, IsValidCode("ADV-A1B2"))
	assert.True(t, IsValidCode("ADV-9999"))
}

func TestIsValidCode_Rejects(t *testing.T) {
	cases := []string{
		"",
		"FREE-A1B2",             // missing subject
		"FREE-A1B2-HISTORY",     // unknown subject
		"FREE-a1b2-MATH",        // lowercase token
		"FREE-A1B2-math",        // lowercase subject
		"FREE-A1B-MATH",         // short token
		"FREE-A1B22-MATH",       // long token
		"FREE-A1!2-MATH",        // bad character
		"ADV-A1B2-MATH",         // advanced with subject
		"ADV-a1b2",              // lowercase token
		"ADV-A1B",               // short token
		"BASIC-A1B2",            // unknown prefix
		"FREE-A1B2-MATH-EXTRA",  // trailing segment
		" FREE-A1B2-MATH",       // leading space
	}
	for _, code := range cases {
		assert.False(t, IsValidCode(code), "code %q should be rejected", code)
	}
}

func TestComposeCode(t *testing.T) {
	free := ComposeCode("A1B2", exam.FreePackage{Subject: exam.SubjectMath})
	assert.Equal(t, "FREE-A1B2-MATH", free)
	assert.True(t, IsValidCode(free))

	adv := ComposeCode("X9Y8", exam.AdvancedPackage{})
	assert.Equal(t, "ADV-X9Y8", adv)
	assert.True(t, IsValidCode(adv))
}
