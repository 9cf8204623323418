package main

import "github.com/atikulmunna/logboard/internal/cmd"

func main() {
	cmd.Execute()
}
