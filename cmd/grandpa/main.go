package main

import (
	"github.com/finalitylab/grandpa-node/cmd/grandpa/cmd"
)

func main() {
	cmd.Execute()
}
