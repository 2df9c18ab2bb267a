// Package printer renders an aggregator snapshot as the engine's output
// table: a header row followed by one row per account, in unspecified
// order, matching the source's final CSV emission.
package printer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/txstream/accounts/aggregator"
)

var header = []string{"client", "available", "held", "total", "locked"}

// Write renders snapshots as comma-separated rows to w, in the order
// given — callers that need a stable order should sort snapshots first.
func Write(w io.Writer, snapshots []aggregator.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("printer: writing header: %w", err)
	}
	for _, s := range snapshots {
		row := []string{
			fmt.Sprintf("%d", s.AccountID),
			s.Available.StringFixed(4),
			s.Held.StringFixed(4),
			s.Total.StringFixed(4),
			fmt.Sprintf("%t", s.Locked),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("printer: writing row for account %d: %w", s.AccountID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
