//go:build tools
// +build tools

// Package tools pins mockgen so that `go generate ./...` works on a fresh checkout.
package chat_sync

import (
	_ "go.uber.org/mock/mockgen"
)
