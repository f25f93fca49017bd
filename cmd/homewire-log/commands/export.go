package commands

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/homewire/homewire-go/pkg/log"
)

// RunExport writes the selected events of path to w as jsonl or csv.
func RunExport(path, format string, sel Selection, w io.Writer) error {
	switch format {
	case "jsonl":
		enc := json.NewEncoder(w)
		return eachSelected(path, sel, func(ev log.Event) error {
			return enc.Encode(ev)
		})
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
		err := eachSelected(path, sel, func(ev log.Event) error {
			return cw.Write(csvRow(ev))
		})
		cw.Flush()
		if err != nil {
			return err
		}
		return cw.Error()
	default:
		return fmt.Errorf("unknown format %q (want jsonl or csv)", format)
	}
}

var csvHeader = []string{"timestamp", "transport_id", "direction", "layer", "category", "endpoint", "address", "detail"}

func csvRow(ev log.Event) []string {
	return []string{
		ev.Timestamp.UTC().Format(timeLayout),
		ev.TransportID,
		ev.Direction.String(),
		ev.Layer.String(),
		ev.Category.String(),
		ev.Endpoint,
		ev.Address,
		detail(ev),
	}
}

// detail is a one-field summary of the type-specific payload.
func detail(event log.Event) string {
	switch {
	case event.Frame != nil:
		return hex.EncodeToString(event.Frame.Data)
	case event.Call != nil:
		return event.Call.Service + "#" + strconv.Itoa(int(event.Call.SeqID)) + " " + event.Call.Outcome.String()
	case event.StateChange != nil:
		return event.StateChange.OldState + "->" + event.StateChange.NewState
	case event.Drop != nil:
		return event.Drop.Reason.String()
	case event.Error != nil:
		return event.Error.Message
	}
	return ""
}
