package main

import "github.com/acmelink/acmelink/cmd"

func main() {
	cmd.Execute()
}
