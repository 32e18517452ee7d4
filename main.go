package main

import "streamagent/cmd"

func main() {
	cmd.Execute()
}
