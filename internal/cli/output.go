package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ASHISH26940/petitiondesk/internal/petition"
)

// printer renders records in the selected format.
type printer struct {
	format string
	w      io.Writer
}

func (p printer) records(list []petition.Record) error {
	if p.format == "json" {
		if list == nil {
			list = []petition.Record{}
		}
		return p.json(list)
	}
	if len(list) == 0 {
		_, err := fmt.Fprintln(p.w, "No petitions.")
		return err
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION\tUPDATED")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Description, petition.FormatTime(r.UpdatedAt))
	}
	return tw.Flush()
}

func (p printer) record(r petition.Record) error {
	if p.format == "json" {
		return p.json(r)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", r.ID)
	fmt.Fprintf(tw, "name:\t%s\n", r.Name)
	fmt.Fprintf(tw, "description:\t%s\n", r.Description)
	fmt.Fprintf(tw, "created_at:\t%s\n", petition.FormatTime(r.CreatedAt))
	fmt.Fprintf(tw, "updated_at:\t%s\n", petition.FormatTime(r.UpdatedAt))
	return tw.Flush()
}

func (p printer) message(format string, args ...any) error {
	if p.format == "json" {
		return p.json(map[string]string{"status": "ok", "message": fmt.Sprintf(format, args...)})
	}
	_, err := fmt.Fprintf(p.w, format+"\n", args...)
	return err
}

func (p printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
