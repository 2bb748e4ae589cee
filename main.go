package main

import "github.com/govsdm/govsdm/cmd"

func main() {
	cmd.Execute()
}
