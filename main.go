package main

import "github.com/Digital-Shane/mediatag/internal/cmd"

func main() {
	cmd.Execute()
}
