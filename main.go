package main

import "github.com/crystaldolphin/slackrelay/cmd"

func main() {
	cmd.Execute()
}
