package main

import "github.com/MeKo-Tech/pogo-pad/cmd/pad/cmd"

func main() {
	cmd.Execute()
}
