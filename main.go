package main

import "rusti/cmd"

func main() {
	cmd.Execute()
}
