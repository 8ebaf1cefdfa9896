package main

import (
	"os"

	"github.com/batatlas/batatlas/cmd"
	"github.com/batatlas/batatlas/internal/buildinfo"
)

func main() {
	os.Exit(cmd.Execute(buildinfo.Current()))
}
