package main

import (
	"github.com/djordjijeK/taskflow/pkg/cli/cmd"
)

func main() {
	cmd.Execute()
}
