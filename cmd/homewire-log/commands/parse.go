// Package commands implements the homewire-log CLI commands.
package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/homewire/homewire-go/pkg/log"
)

// Selection holds the filter flags shared by view, export and filter.
type Selection struct {
	Transport string
	Endpoint  string
	Layer     string
	Direction string
	Category  string
	TimeStart string
	TimeEnd   string
}

// Filter converts the selection into a capture filter.
func (s Selection) Filter() (log.Filter, error) {
	f := log.Filter{
		TransportID: s.Transport,
		Endpoint:    s.Endpoint,
	}

	if s.Layer != "" {
		l, err := parseLayer(s.Layer)
		if err != nil {
			return f, err
		}
		f.Layer = &l
	}
	if s.Direction != "" {
		d, err := parseDirection(s.Direction)
		if err != nil {
			return f, err
		}
		f.Direction = &d
	}
	if s.Category != "" {
		c, err := parseCategory(s.Category)
		if err != nil {
			return f, err
		}
		f.Category = &c
	}
	if s.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, s.TimeStart)
		if err != nil {
			return f, fmt.Errorf("invalid time-start format: %w", err)
		}
		f.TimeStart = &t
	}
	if s.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, s.TimeEnd)
		if err != nil {
			return f, fmt.Errorf("invalid time-end format: %w", err)
		}
		f.TimeEnd = &t
	}
	return f, nil
}

func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "device":
		return log.LayerDevice, nil
	case "service":
		return log.LayerService, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, device, or service)", s)
	}
}

func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "frame":
		return log.CategoryFrame, nil
	case "call":
		return log.CategoryCall, nil
	case "state":
		return log.CategoryState, nil
	case "drop":
		return log.CategoryDrop, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be frame, call, state, drop, or error)", s)
	}
}

// shortID returns the first 8 characters of a transport id.
func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
