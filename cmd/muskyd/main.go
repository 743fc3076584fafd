package main

import "github.com/musky-network/muskyd/internal/cli"

func main() {
	cli.Execute()
}
