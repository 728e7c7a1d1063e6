package main

import (
	"campushub/cmd"
)

func main() {
	cmd.Execute()
}
