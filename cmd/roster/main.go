package main

import "github.com/loog-project/roster/cmd"

func main() {
	cmd.Execute()
}
