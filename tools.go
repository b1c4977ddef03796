//go:build tools

package main

// Pins CLI tools used by go:generate.
import (
	_ "github.com/swaggo/swag/cmd/swag"
)
