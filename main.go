package main

import "github.com/devicelab-dev/launcher-tapl/pkg/cli"

func main() {
	cli.Execute()
}
