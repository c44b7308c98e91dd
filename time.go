package authclient

import "time"

// ExpiresWithin checks if the given expiry falls inside the window starting at now
func ExpiresWithin(expiry time.Time, window time.Duration, now time.Time) bool {
	if !expiry.After(now) {
		return false
	}

	threshold := now.Add(window)
	return expiry.Before(threshold) || expiry.Equal(threshold)
}

// ExpiresAfter is the negation of ExpiresWithin for still-distant expiries
func ExpiresAfter(expiry time.Time, window time.Duration, now time.Time) bool {
	if !expiry.After(now) {
		return false
	}

	return !ExpiresWithin(expiry, window, now)
}
