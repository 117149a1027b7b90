package main

import "github.com/khanhnv2901/seca-suite/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
