package main

import "github.com/romain1189/quartz/cmd/quartz/cmd"

func main() {
	cmd.Execute()
}
