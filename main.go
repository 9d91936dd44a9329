package main

import "github.com/kozaktomas/pose-check/cmd"

func main() {
	cmd.Execute()
}
