// tierstat analyzes the tier telemetry of a storage engine benchmark run:
// where objects of each access cohort live, how fast each tier serves
// them, and how full each tier is.
package main

import "os"

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	os.Exit(Execute(os.Args[1:]))
}
