// Command fileguardctl is the admin CLI for fileguardcore: it speaks
// the control-channel wire protocol over a Unix domain socket to
// manage rules and lifecycle flags, and attaches to the monitor
// channel to stream live audit records.
package main

import "github.com/fxtack/fileguardcore/cmd/fileguardctl/cmd"

func main() {
	cmd.Execute()
}
