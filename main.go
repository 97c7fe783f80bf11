package main

import "wraith/cmd"

func main() {
	cmd.Execute()
}
