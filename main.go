// The main package for the catalog-sync executable.
package main

import (
	"github.com/bicyclebluebook/catalog-sync/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
