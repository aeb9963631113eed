package enums

import "fmt"

// BuildType discriminates between a URL-wrapping build and an uploaded
// static HTML bundle build.
type BuildType string

const (
	BuildTypeURL  BuildType = "url"
	BuildTypeHTML BuildType = "html"
)

var validBuildTypes = []BuildType{
	BuildTypeURL,
	BuildTypeHTML,
}

// String implements fmt.Stringer.
func (b BuildType) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BuildType.
func (b BuildType) IsValid() bool {
	for _, candidate := range validBuildTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBuildType converts raw input into a BuildType.
func ParseBuildType(value string) (BuildType, error) {
	for _, candidate := range validBuildTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid build type %q", value)
}
