package uploadqueue

import (
	"strings"
	"time"
)

// ClassifyError reproduces retry.rs::classify_error's substring table
// verbatim (spec §4.7).
func ClassifyError(errMsg string) ErrorType {
	clientMarkers := []string{
		"status 400", "Bad Request",
		"status 401", "Unauthorized",
		"status 403", "Forbidden",
		"status 404", "Not Found",
		"validation failed", "invalid input",
	}
	for _, m := range clientMarkers {
		if strings.Contains(errMsg, m) {
			return ClientError
		}
	}

	serverMarkers := []string{
		"status 5", "Internal Server Error", "Service Unavailable", "Gateway Timeout",
	}
	for _, m := range serverMarkers {
		if strings.Contains(errMsg, m) {
			return ServerError
		}
	}

	return NetworkError
}

// RetryStrategy is the exponential-backoff policy, grounded on
// retry.rs::RetryStrategy.
type RetryStrategy struct {
	MaxRetries       int
	BaseDelaySeconds int64
}

// DefaultRetryStrategy matches spec §4.7's default (base 2, max 3 retries).
func DefaultRetryStrategy() RetryStrategy {
	return RetryStrategy{MaxRetries: DefaultMaxRetries, BaseDelaySeconds: DefaultBackoffBaseSeconds}
}

// ShouldRetry reports whether an item that failed with errType should
// be retried: client errors never retry; everything else retries up
// to MaxRetries attempts.
func (r RetryStrategy) ShouldRetry(retryCount int, errType ErrorType) bool {
	if errType == ClientError {
		return false
	}
	return retryCount < r.MaxRetries
}

// CalculateBackoff returns base^(retryCount+1) seconds.
func (r RetryStrategy) CalculateBackoff(retryCount int) time.Duration {
	delay := int64(1)
	for i := 0; i <= retryCount; i++ {
		delay *= r.BaseDelaySeconds
	}
	return time.Duration(delay) * time.Second
}

// ScheduleRetry returns the next_retry_at instant for an item that has
// already been retried retryCount times. It does not change the count;
// the caller increments it.
func (r RetryStrategy) ScheduleRetry(now time.Time, retryCount int) time.Time {
	return now.Add(r.CalculateBackoff(retryCount))
}
