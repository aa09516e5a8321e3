package main

import "macroscrape/cmd/macroscrape/cmd"

func main() {
	cmd.Execute()
}
