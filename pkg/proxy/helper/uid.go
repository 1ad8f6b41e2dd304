// Package helper holds small, stateless utilities shared across the
// proxy's internal packages, grounded on the teacher's helper
// conventions (pkg/mcast/core referenced a sibling helper package for
// UID generation).
package helper

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

// GenerateUID returns a fresh, process-unique token with its dashes
// stripped, mirroring the original's str(uuid.uuid1()).replace("-", "").
func GenerateUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// ResolveComponentName returns the environment override "component_name"
// if set, otherwise "<componentType>_proxy_<uid>".
func ResolveComponentName(componentType string) string {
	if name := os.Getenv("component_name"); name != "" {
		return name
	}
	return componentType + "_proxy_" + GenerateUID()
}
