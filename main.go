package main

import "github.com/arb-engine/predictionarb/cmd"

func main() {
	cmd.Execute()
}
