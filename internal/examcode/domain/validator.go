package domain

import (
	"strings"

	"github.com/prelimth/examgate/internal/exam"
)

const tokenLength = 4

// IsValidCode reports whether a presented string matches one of the two
// code templates exactly: FREE-XXXX-<SUBJECT> or ADV-XXXX, where XXXX is
// four characters from [A-Z0-9]. Pure, no I/O; check-in tooling uses it
// before any lookup.
func IsValidCode(code string) bool {
	switch {
	case strings.HasPrefix(code, "FREE-"):
		parts := strings.Split(code, "-")
		if len(parts) != 3 {
			return false
		}
		if !validToken(parts[1]) {
			return false
		}
		return validSubjectToken(parts[2])
	case strings.HasPrefix(code, "ADV-"):
		parts := strings.Split(code, "-")
		if len(parts) != 2 {
			return false
		}
		return validToken(parts[1])
	default:
		return false
	}
}

func validToken(token string) bool {
	if len(token) != tokenLength {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// validSubjectToken accepts only canonical uppercase subject tokens;
// unlike exam.ParseSubject it performs no case folding.
func validSubjectToken(raw string) bool {
	switch exam.Subject(raw) {
	case exam.SubjectMath, exam.SubjectScience, exam.SubjectEnglish:
		return true
	default:
		return false
	}
}

// ComposeCode assembles the final code string for a package variant.
func ComposeCode(token string, request exam.PackageRequest) string {
	switch pkg := request.(type) {
	case exam.FreePackage:
		return "FREE-" + token + "-" + string(pkg.Subject)
	default:
		return "ADV-" + token
	}
}
