package main

import (
	"os"
	"runtime/debug"

	"lumen/cmd"
	"lumen/logx"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Error("node", "crashed: ", r, "\n", string(debug.Stack()))
			os.Exit(1)
		}
	}()

	cmd.Execute()
}
