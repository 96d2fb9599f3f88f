package main

import "appgambit/cmd/cli/command"

func main() {
	command.Execute()
}
