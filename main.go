package main

import "playctl/cmd"

func main() {
	cmd.Execute()
}
