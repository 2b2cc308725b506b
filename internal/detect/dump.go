// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package detect

import (
	"fmt"
	"io"
	"time"
)

// DumpStatus writes the human-readable status-dump signal's output:
// every group's policy table, pattern hit counters, and every watch
// entry with its remaining window and state. Safe to call
// synchronously from the main loop's flagged section (not from an
// actual signal handler) since it only reads group state.
func DumpStatus(w io.Writer, groups []*Group, now time.Time) error {
	for _, g := range groups {
		st := g.Snapshot(now)
		if _, err := fmt.Fprintf(w, "group %s (table %d)\n", st.Name, st.Table); err != nil {
			return err
		}
		for _, p := range st.Patterns {
			if _, err := fmt.Fprintf(w, "  pattern[%d] %q hits=%d\n", p.Index, p.Expr, p.Hits); err != nil {
				return err
			}
		}
		if len(st.Hosts) == 0 {
			if _, err := fmt.Fprintf(w, "  (no watched hosts)\n"); err != nil {
				return err
			}
			continue
		}
		for _, h := range st.Hosts {
			if _, err := fmt.Fprintf(w, "  %s count=%d state=%s expires_in=%s\n",
				h.Host, h.Count, h.State, h.RemainingIn.Truncate(time.Second)); err != nil {
				return err
			}
		}
	}
	return nil
}
