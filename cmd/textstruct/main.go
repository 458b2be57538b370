// Command textstruct splits pairs of texts into labeled units with the
// Anthropic Messages API, either as an HTTP service or one pair at a time.
package main

import "os"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
