package main

import (
	"github.com/srgkas/laravel-echo-server/internal/cli"
)

func main() {
	cli.Execute()
}
