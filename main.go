// The main package for the trendcollector executable.
package main

import (
	"github.com/JakeFAU/bag-trend-collector/cmd"
)

// main defers all execution to the cobra CLI.
func main() {
	cmd.Execute()
}
