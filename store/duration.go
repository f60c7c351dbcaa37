package store

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// isoDurationRe matches the subset of ISO-8601 durations the store accepts:
// P[nY][nM][nW][nD][T[nH][nM][nS]]. Calendar components use fixed
// approximations (Y=365d, M=30d, W=7d).
var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration converts an ISO-8601 duration string into a
// time.Duration. An empty string is not a valid duration; callers treat it
// as "permanent" before parsing.
func ParseISODuration(s string) (time.Duration, error) {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "" {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", s)
	}
	num := func(v string) time.Duration {
		if v == "" {
			return 0
		}
		n, _ := strconv.Atoi(v)
		return time.Duration(n)
	}
	d := num(m[1])*365*24*time.Hour +
		num(m[2])*30*24*time.Hour +
		num(m[3])*7*24*time.Hour +
		num(m[4])*24*time.Hour +
		num(m[5])*time.Hour +
		num(m[6])*time.Minute +
		num(m[7])*time.Second
	if d == 0 {
		return 0, fmt.Errorf("zero-length ISO-8601 duration %q", s)
	}
	return d, nil
}
