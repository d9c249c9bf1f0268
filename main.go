// ./main.go
package main

import (
	"github.com/xkilldash9x/crosspost-cli/cmd"
)

// main is the entry point for the crosspost CLI application.
func main() {
	cmd.Execute()
}
