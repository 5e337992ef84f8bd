package main

import "github.com/micrictor/fwrules/cmd"

func main() {
	cmd.Execute()
}
