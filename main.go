package main

import "reshare/cmd"

func main() {
	cmd.Execute()
}
