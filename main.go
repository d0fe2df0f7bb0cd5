package main

import "github.com/simonyos/wfgen/cmd"

func main() {
	cmd.Execute()
}
