// Command metricsd is the runtime metrics manager daemon and its client CLI.
package main

import (
	"github.com/anstrom/metricsd/cmd/cli"
)

func main() {
	cli.Execute()
}
