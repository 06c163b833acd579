package main

import "github.com/krishkalaria12/snap-thumbs/cli"

func main() {
	cli.Execute()
}
