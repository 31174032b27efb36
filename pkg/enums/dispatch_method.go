package enums

import "fmt"

// DispatchMethod is the HTTP verb used against the CRM endpoint.
type DispatchMethod string

const (
	DispatchPostJSON DispatchMethod = "POST"
	DispatchPatch    DispatchMethod = "PATCH"
)

var validDispatchMethods = []DispatchMethod{
	DispatchPostJSON,
	DispatchPatch,
}

// IsValid reports whether the value matches a supported dispatch method.
func (d DispatchMethod) IsValid() bool {
	for _, candidate := range validDispatchMethods {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDispatchMethod converts raw input into a DispatchMethod.
func ParseDispatchMethod(value string) (DispatchMethod, error) {
	for _, candidate := range validDispatchMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispatch method %q", value)
}
