package main

import "polymarket-edge/internal/cli"

func main() {
	cli.Execute()
}
