// ./main.go
package main

import (
	"github.com/xkilldash9x/printer-snatcher/cmd"
)

// main is the entry point for the snatcher binary.
func main() {
	cmd.Execute()
}
