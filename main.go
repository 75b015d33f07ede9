package main

import "github.com/taskrunner-go/taskrunner/cmd"

func main() {
	cmd.Execute()
}
