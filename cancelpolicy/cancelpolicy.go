// Package cancelpolicy implements the end-of-day order eviction rules,
// grounded on original_source/src/finance/cancel_policy.rs (including its
// default clock offsets).
package cancelpolicy

import "time"

// Policy is the minimal interface every cancel-policy variant implements.
type Policy interface {
	ShouldCancel(createdAt, now time.Time) bool
}

// NeverCancel never evicts an order.
type NeverCancel struct{}

func (NeverCancel) ShouldCancel(time.Time, time.Time) bool { return false }

// EODCancel evicts an order once now is at or past the market-close hour of
// the order's creation date, or on any later calendar date. Default close
// hour is 20:00 UTC, matching original_source's default.
type EODCancel struct {
	MarketCloseHour int
}

// DefaultEODCancel returns the EODCancel policy with the source's default
// close hour.
func DefaultEODCancel() EODCancel { return EODCancel{MarketCloseHour: 20} }

func (p EODCancel) ShouldCancel(createdAt, now time.Time) bool {
	createdDate := createdAt.Truncate(24 * time.Hour)
	nowDate := now.Truncate(24 * time.Hour)
	if nowDate.After(createdDate) {
		return true
	}
	closeTime := createdDate.Add(time.Duration(p.MarketCloseHour) * time.Hour)
	return !now.Before(closeTime)
}

// EODCancelNext evicts an order on the next session's open: true once now
// falls on a different calendar date than creation and is at or past the
// market-open hour. Default open hour is 14:00 UTC.
type EODCancelNext struct {
	MarketOpenHour int
}

// DefaultEODCancelNext returns the EODCancelNext policy with the source's
// default open hour.
func DefaultEODCancelNext() EODCancelNext { return EODCancelNext{MarketOpenHour: 14} }

func (p EODCancelNext) ShouldCancel(createdAt, now time.Time) bool {
	createdDate := createdAt.Truncate(24 * time.Hour)
	nowDate := now.Truncate(24 * time.Hour)
	if !nowDate.After(createdDate) {
		return false
	}
	openTime := nowDate.Add(time.Duration(p.MarketOpenHour) * time.Hour)
	return !now.Before(openTime)
}
