package main

import "github.com/taior/taior/cmd/taior/cmd"

func main() {
	cmd.Execute()
}
