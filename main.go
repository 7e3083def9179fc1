package main

import (
	"marketchain/cmd"
)

func main() {
	cmd.Execute()
}
