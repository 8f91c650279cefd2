package main

import "github.com/masmgr/gigawork-go/cmd"

func main() {
	cmd.Run()
}
