package main

import "github.com/nvtrung/certprobe-cli/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
