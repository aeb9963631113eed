package validation

import (
	"regexp"
	"strings"
)

// Reverse-domain identifiers the platform refuses to sign builds for.
var reservedPackagePrefixes = []string{
	"com.android",
	"com.google",
	"android.",
	"java.",
	"javax.",
}

var packageSegmentRe = regexp.MustCompile(`^[a-z][a-z0-9]*$`)

// CheckPackageName validates the Android application identifier: at least
// three dot-separated lowercase alphanumeric segments, each starting with a
// letter, and not squatting a reserved vendor namespace.
func CheckPackageName(f FieldErrors, field, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		f.Add(field, "is required")
		return
	}

	lower := strings.ToLower(name)
	for _, prefix := range reservedPackagePrefixes {
		if strings.HasPrefix(lower, prefix) {
			f.Add(field, "uses a reserved package prefix")
			return
		}
	}

	segments := strings.Split(name, ".")
	if len(segments) < 3 {
		f.Add(field, "must have at least three dot-separated segments")
		return
	}
	for _, segment := range segments {
		if !packageSegmentRe.MatchString(segment) {
			f.Add(field, "segments must be lowercase alphanumeric and start with a letter")
			return
		}
	}
}
