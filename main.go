package main

import (
	"os"

	"github.com/8090Lambert/tree-new-bee/command"
)

func main() {
	os.Exit(command.Execute())
}
