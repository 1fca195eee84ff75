package main

import "github.com/idowu-gb/MAD-Project/cmd"

func main() {
	cmd.Execute()
}
