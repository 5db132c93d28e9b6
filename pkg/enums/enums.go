package enums

import "fmt"

// parse returns the member of set spelled exactly like value. kind names the enum in the
// error message.
func parse[T ~string](set []T, value, kind string) (T, error) {
	for _, candidate := range set {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, value)
}
