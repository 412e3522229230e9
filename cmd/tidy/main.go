// Package main provides the entry point for the tidy CLI.
package main

import (
	"os"
)

func main() {
	os.Exit(Execute())
}
