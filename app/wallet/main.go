// This program is a simple wallet for the simplechain node.
package main

import "github.com/simplechain/node/app/wallet/cmd"

func main() {
	cmd.Execute()
}
