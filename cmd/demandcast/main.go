package main

import "demandcast/internal/cli"

func main() {
	cli.Execute()
}
