package main

import "github.com/kamal-hamza/rfm-cli/cmd"

func main() {
	cmd.Execute()
}
