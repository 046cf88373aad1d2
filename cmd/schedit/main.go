package main

import "github.com/OpenTraceLab/schedit/cmd/schedit/cmd"

func main() {
	cmd.Execute()
}
