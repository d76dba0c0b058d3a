package main

import "github.com/Mohsinsiddi/greeter/cmd"

func main() {
	cmd.Execute()
}
