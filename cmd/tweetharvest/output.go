package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/anatolykoptev/go-tweetharvest/collect"
)

// renderText prints each account in input order, newest posts first. An
// account with nothing collected is reported as either empty or failed.
func renderText(w io.Writer, run *collect.CollectionRun) error {
	var b strings.Builder
	for _, acc := range run.Accounts {
		res := run.Result(acc)
		if res == nil {
			continue
		}
		res.SortNewestFirst()

		switch {
		case res.Failed() && res.Empty():
			fmt.Fprintf(&b, "@%s: collection failed (%s): %v\n\n", acc, res.Err.Kind, res.Err.Err)
			continue
		case res.Empty():
			fmt.Fprintf(&b, "@%s: no posts found\n\n", acc)
			continue
		}

		fmt.Fprintf(&b, "== @%s: %d posts ==\n", acc, len(res.Records))
		if res.Failed() {
			fmt.Fprintf(&b, "(partial, collection failed (%s): %v)\n", res.Err.Kind, res.Err.Err)
		}
		for _, rec := range res.Records {
			fmt.Fprintf(&b, "%s  %s (@%s)  RT %d  Likes %d\n", rec.CreatedAt, rec.AuthorName, rec.AuthorHandle, rec.RetweetCount, rec.FavoriteCount)
			for line := range strings.Lines(rec.Text) {
				fmt.Fprintf(&b, "  %s", line)
			}
			if !strings.HasSuffix(rec.Text, "\n") {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "  %s\n\n", rec.Permalink)
		}
	}
	fmt.Fprintf(&b, "%d posts from %d accounts", run.Total(), len(run.Accounts))
	if failed := run.Failed(); len(failed) > 0 {
		fmt.Fprintf(&b, ", failed: %s", strings.Join(failed, ", "))
	}
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

// renderJSON writes the run as one indented JSON document. Records keep
// upstream order.
func renderJSON(w io.Writer, run *collect.CollectionRun) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}
