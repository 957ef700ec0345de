package main

import "github.com/MeKo-Tech/ticketscan/cmd/ticketscan/cmd"

func main() {
	cmd.Execute()
}
