// Command cmsrelay relays files referenced by a CMS listing back into the CMS.
package main

import (
	"fmt"
	"os"

	"github.com/ka2n/cmsrelay/cli"
	"github.com/ka2n/cmsrelay/log"
	"github.com/morikuni/failure/v2"
)

func main() {
	if err := cli.Run(); err != nil {
		var userMessage string
		if fmsg := failure.MessageOf(err); fmsg != "" {
			userMessage = fmsg.String()
		} else {
			userMessage = err.Error()
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", userMessage)
		if os.Getenv(log.EnvDebug) != "" {
			fmt.Fprintf(os.Stderr, "%+v\n", err)
		}
		os.Exit(1)
	}
}
