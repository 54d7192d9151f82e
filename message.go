package shopAuth

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	otpPlaceholder = "{otp}"
	ttlPlaceholder = "{ttl}"
)

// renderOTPMessage substitutes the code and a humanized TTL into tmpl.
func renderOTPMessage(tmpl, otp string, ttl time.Duration) string {
	return strings.NewReplacer(
		otpPlaceholder, otp,
		ttlPlaceholder, humanizeTTL(ttl),
	).Replace(tmpl)
}

// humanizeTTL renders a duration the way people read it: "5 minutes",
// "a minute", "30 seconds", "2 hours".
func humanizeTTL(d time.Duration) string {
	if d <= 0 {
		return "now"
	}
	now := time.Now()
	s := humanize.CustomRelTime(now, now.Add(d), "", "", ttlMagnitudes)
	return strings.TrimSpace(s)
}

var ttlMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Second, Format: "a second %s", DivBy: 1},
	{D: 2 * time.Second, Format: "a second %s", DivBy: 1},
	{D: time.Minute, Format: "%d seconds %s", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "a minute %s", DivBy: 1},
	{D: time.Hour, Format: "%d minutes %s", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "an hour %s", DivBy: 1},
	{D: humanize.Day, Format: "%d hours %s", DivBy: time.Hour},
	{D: 2 * humanize.Day, Format: "a day %s", DivBy: 1},
	{D: humanize.Week, Format: "%d days %s", DivBy: humanize.Day},
	{D: 2 * humanize.Week, Format: "a week %s", DivBy: 1},
	{D: humanize.Month, Format: "%d weeks %s", DivBy: humanize.Week},
	{D: humanize.LongTime, Format: "a long while %s", DivBy: 1},
}
