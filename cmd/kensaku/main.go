package main

import "github.com/hyperjump/kensaku/internal/cli"

func main() {
	cli.Execute()
}
