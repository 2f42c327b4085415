package main

import "github.com/kpelzel/artnode/cmd"

func main() {
	cmd.Execute()
}
