package viewer

import (
	"fmt"
	"time"
)

// shortSuiObjectID abbreviates a hex object id for display, grounded on
// original_source/crates/backend/src/format.rs's short_sui_object_id.
func shortSuiObjectID(id string) string {
	if len(id) > 14 {
		return id[:8] + "..." + id[len(id)-6:]
	}
	return id
}

// formatTimeAgo renders the elapsed time between timestamp and now as
// "Nd ago" / "Nh ago" / "Nm ago", grounded on format.rs's
// format_time_ago.
func formatTimeAgo(timestamp, now time.Time) string {
	diff := now.Sub(timestamp)
	days := int64(diff / (24 * time.Hour))
	hours := int64(diff / time.Hour)
	minutes := int64(diff / time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd ago", days)
	case hours > 0:
		return fmt.Sprintf("%dh ago", hours)
	default:
		return fmt.Sprintf("%dm ago", minutes)
	}
}
