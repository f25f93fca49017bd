package commands

import (
	"fmt"

	"github.com/homewire/homewire-go/pkg/log"
)

// eachEvent opens the capture at path and calls fn for every event that
// passes filter. A non-nil error from fn stops the scan and is returned.
func eachEvent(path string, filter log.Filter, fn func(log.Event) error) error {
	r, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	for ev, err := range r.All() {
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

// eachSelected is eachEvent with the filter built from sel.
func eachSelected(path string, sel Selection, fn func(log.Event) error) error {
	filter, err := sel.Filter()
	if err != nil {
		return err
	}
	return eachEvent(path, filter, fn)
}
