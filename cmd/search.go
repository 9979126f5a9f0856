package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
)

// SearchStations prints the stations that best match term.
func SearchStations(term string, limit int, out io.Writer) error {

	res, err := bootstrap(nil)
	if err != nil {
		return err
	}
	defer res.Close()

	if err := res.controller.Start(context.Background(), nil); err != nil {
		return err
	}

	results := res.controller.Search(term, limit)
	if len(results) == 0 {
		log.Infof("no stations match %q", term)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tADDRESS")
	for _, station := range results {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", station.Id, station.Name, station.Address)
	}
	return tw.Flush()
}
