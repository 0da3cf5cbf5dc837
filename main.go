package main

import "github.com/moyu-x/data-librarian/cmd"

func main() {
	cmd.Execute()
}
