package main

import (
	"os"

	"github.com/dkhoanguyen/dvrk-console/pkg/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
