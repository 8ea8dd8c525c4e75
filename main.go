// The main package for the lyricscout executable.
package main

import (
	"github.com/lyricscout/lyricscout/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
