//go:build tools
// +build tools

// Package tools tracks code generators so go.mod keeps them pinned.
package main

import (
	_ "go.uber.org/mock/mockgen"
)
