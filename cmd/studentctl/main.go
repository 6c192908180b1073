package main

import "github.com/krnkaavya03/StuPred/internal/cli"

func main() {
	cli.Execute()
}
