package main

import "github.com/douhashi/omakase/cmd"

func main() {
	cmd.Execute()
}
