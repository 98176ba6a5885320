package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/clihunter/pkg/types"
)

// unitSeparator delimits fields within one result record. Pickers split
// on it and must never see it inside command text, which the escaping
// below guarantees since 0x1F cannot be typed into a shell history.
const unitSeparator = "\x1f"

// errorSentinel prefixes the single line emitted when a query fails, so
// an external picker can display the failure instead of crashing on it.
const errorSentinel = "CLIHUNTER:ERROR "

// formatRecord renders one search result as a wire record: raw command,
// description, comma-joined tags, and id joined by the unit separator.
// Backticks are escaped and newlines flattened so the record survives
// shell interpolation and stays on one line.
func formatRecord(entry *types.CommandEntry) string {
	fields := []string{
		entry.RawCommand,
		entry.Description,
		strings.Join(entry.Tags, ", "),
		entry.ID,
	}
	record := strings.Join(fields, unitSeparator)
	record = strings.ReplaceAll(record, "`", "\\`")
	record = strings.ReplaceAll(record, "\n", "\\n")
	return record
}

// writeRecords emits one record per line. No results means no output,
// which the wire format defines as "no matches", not an error.
func writeRecords(w io.Writer, results []types.SearchResult) error {
	for _, r := range results {
		if _, err := fmt.Fprintln(w, formatRecord(r.Entry)); err != nil {
			return err
		}
	}
	return nil
}

// writeErrorSentinel emits the fixed-prefix error line
func writeErrorSentinel(w io.Writer, err error) {
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	fmt.Fprintln(w, errorSentinel+msg)
}
