package main

import "github.com/solmint/relay/internal/cli"

func main() {
	cli.Execute()
}
