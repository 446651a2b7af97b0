// Command swu-binder tracks a Star Wars: Unlimited collection against set
// catalogs laid out as a 12-pocket binder.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
