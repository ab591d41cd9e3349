package main

import "github.com/tashifkhan/MOOC-utils/internal/cli"

func main() {
	cli.Execute()
}
