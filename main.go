package main

import "github.com/kernelmethod/worldmap/cmd"

func main() {
	cmd.Execute()
}
