package main

import "github.com/nextlevelbuilder/anonrelay/cmd"

func main() {
	cmd.Execute()
}
