//go:build tools

package tools

// Mocks under pkg/*/mocks are generated from .mockery.yaml.
// Run: go run github.com/vektra/mockery/v2
import (
	_ "github.com/vektra/mockery/v2"
)
