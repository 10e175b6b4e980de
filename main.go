package main

import "github.com/polimi-ispl/POLIPHONE/cmd"

func main() {
	cmd.Execute()
}
