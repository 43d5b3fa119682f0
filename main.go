// The main package for the checklisting executable.
package main

import (
	"github.com/checklisting/crawler/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
