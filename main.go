package main

import (
	"tunedeck/cmd"
)

func main() {
	cmd.Execute()
}
