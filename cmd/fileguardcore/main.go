// Command fileguardcore is the file-access policy engine's core
// process: rule store, interception pipeline, monitor queue/worker,
// and control/monitor listeners.
package main

import "github.com/fxtack/fileguardcore/cmd/fileguardcore/cmd"

func main() {
	cmd.Execute()
}
