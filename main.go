package main

import "seqbench/cmd"

func main() {
	cmd.Execute()
}
