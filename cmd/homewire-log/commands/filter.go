package commands

import (
	"fmt"

	"github.com/homewire/homewire-go/pkg/log"
)

// RunFilter copies the selected events of path into output and returns
// how many were written.
func RunFilter(path, output string, sel Selection) (n int, err error) {
	out, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", output, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	err = eachSelected(path, sel, func(ev log.Event) error {
		out.Log(ev)
		n++
		return nil
	})
	return n, err
}
