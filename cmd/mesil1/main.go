// Command mesil1 simulates private MESI L1 caches kept coherent by a
// directory home node.
package main

import "github.com/sarchlab/mesil1/cmd/mesil1/cmd"

func main() {
	cmd.Execute()
}
