package main

import "github.com/Mohsinsiddi/quarkcheck/cmd"

func main() {
	cmd.Execute()
}
