package main

import "github.com/roadscout/roadscout/cmd"

func main() {
	cmd.Execute()
}
