package main

import "churndb/cmd"

func main() {
	cmd.Execute()
}
