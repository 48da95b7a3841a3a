package main

import "github.com/agentic-research/eraload/cmd"

func main() {
	cmd.Execute()
}
