package cmd

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Report renders the dashboard once and writes it to out as JSON. share is
// an optional shared-link query string (with or without the leading '?')
// that takes precedence over the saved selection.
func Report(share string, out io.Writer) error {

	query, err := url.ParseQuery(strings.TrimPrefix(share, "?"))
	if err != nil {
		return fmt.Errorf("invalid share query: %w", err)
	}

	res, err := bootstrap(query)
	if err != nil {
		return err
	}
	defer res.Close()

	if err := res.controller.Start(context.Background(), query); err != nil {
		return err
	}

	view := res.controller.View(time.Now())
	if view.Status != "" {
		log.Info(view.Status)
	}
	if res.location != nil {
		log.Infof("share this view with ?%s", res.location.String())
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
