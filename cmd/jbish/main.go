package main

import "github.com/jmbish04/jbish-kit/internal/cli"

func main() {
	cli.Execute()
}
