// Package main provides the leakguard CLI entry point.
package main

import "github.com/leakguard-dev/leakguard/internal/cli"

func main() {
	cli.Main()
}
