// npkctl is a one-shot operator CLI for NpkBot: it configures the robot
// address, sends directives, reads telemetry and computes recommendations.
package main

import (
	"fmt"
	"log"
	"os"
)

const usage = `usage: npkctl [-c config] [-format json|csv] <command> [args]

commands:
  config get | set <http://host:port> | clear
  send <forward|backward|left|right|stop|scan_soil>
  drive [-hold 1s] <forward|backward|left|right>
  gps
  soil
  watch [-n count] <gps|soil>
  recommend <N> <P> <K>
`

func main() {
	log.SetFlags(0)
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "npkctl:", err)
		os.Exit(1)
	}
}
