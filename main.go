package main

import "github.com/naka-gawa/pr-histogram/cmd"

func main() {
	cmd.Execute()
}
