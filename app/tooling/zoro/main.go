// This program provides a command line client for the bridge node: chain
// inspection, inclusion proof checks, and a regnet miner for producing test
// chains.
package main

import (
	"github.com/zoroproject/zoro/app/tooling/zoro/cmd"
)

func main() {
	cmd.Execute()
}
