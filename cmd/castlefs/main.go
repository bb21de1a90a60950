package main

import "castlefs/cmd/castlefs/command"

func main() {
	command.Execute()
}
