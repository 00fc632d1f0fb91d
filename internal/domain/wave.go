package domain

import "time"

// Wave is one point on the delivery timeline. Ordering is by (year, quarter);
// Date is a display/tie-break field, not the primary order.
type Wave struct {
	ID        int64     `json:"id"`
	Year      int       `json:"year"`
	Quarter   int       `json:"quarter"`
	Date      string    `json:"date,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
}

// AtOrAfter reports whether w sits at or after cutoff on the (year, quarter)
// timeline. A missing quarter compares as 0.
func (w Wave) AtOrAfter(cutoff Wave) bool {
	if w.Year != cutoff.Year {
		return w.Year > cutoff.Year
	}
	return w.Quarter >= cutoff.Quarter
}
