package main

import "solwatch/cmd/commands"

func main() {
	commands.Execute()
}
