package main

import "github.com/mchmarny/rentprice/pkg/cli"

func main() {
	cli.Execute()
}
