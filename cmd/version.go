package cmd

import "fmt"

// Version is set at build time via -ldflags "-X .../cmd.Version=v1.2.3".
var Version = "dev"

// runVersion prints version information.
func runVersion() {
	fmt.Printf("selldesk %s\n", Version)
}
