package main

import "github.com/abefas/GoTodo/cmd"

func main() {
	cmd.Execute()
}
