// Command cfip inspects the Cloudflare edge ranges and resolves client IPs
// the way the cloudflareip package does inside an application.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
