package main

import "github.com/marshell/marsh/cmd"

func main() {
	cmd.Execute()
}
