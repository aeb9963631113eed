package enums

import "fmt"

// GenerateStatus tracks the lifecycle of a build request.
type GenerateStatus string

const (
	GenerateStatusPending  GenerateStatus = "pending"
	GenerateStatusBuilding GenerateStatus = "building"
	GenerateStatusReady    GenerateStatus = "ready"
	GenerateStatusFailed   GenerateStatus = "failed"
)

var validGenerateStatuses = []GenerateStatus{
	GenerateStatusPending,
	GenerateStatusBuilding,
	GenerateStatusReady,
	GenerateStatusFailed,
}

// String implements fmt.Stringer.
func (g GenerateStatus) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GenerateStatus.
func (g GenerateStatus) IsValid() bool {
	for _, candidate := range validGenerateStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGenerateStatus converts raw input into a GenerateStatus.
func ParseGenerateStatus(value string) (GenerateStatus, error) {
	for _, candidate := range validGenerateStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid generate status %q", value)
}
