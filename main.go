package main

import "Nocturne/cmd"

func main() {
	cmd.Execute()
}
