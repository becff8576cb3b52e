// Package main provides the habits CLI.
package main

import "github.com/mesh-intelligence/habits/internal/cli"

func main() {
	cli.Execute()
}
