// Command phonalign aligns a clean reference text against a word-level
// timestamped transcript of the same content and cuts the source audio into
// labelled training clips.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "phonalign: %v\n", err)
		os.Exit(1)
	}
}
