package config

import "time"

// RetryBaseDelay returns the first classification backoff delay.
func (c Classifier) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelaySeconds) * time.Second
}

// RetryMaxDelay returns the classification backoff cap.
func (c Classifier) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelaySeconds) * time.Second
}

// Timeout returns the catalog HTTP request timeout.
func (c Catalog) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// PollInterval returns how often idle lanes poll for claimable books.
func (w Workflow) PollInterval() time.Duration {
	return time.Duration(w.QueuePollInterval) * time.Second
}

// ErrorRetryDelay returns the pause after a lane iteration fails.
func (w Workflow) ErrorRetryDelay() time.Duration {
	return time.Duration(w.ErrorRetryInterval) * time.Second
}

// HeartbeatPeriod returns how often in-flight books refresh their heartbeat.
func (w Workflow) HeartbeatPeriod() time.Duration {
	return time.Duration(w.HeartbeatInterval) * time.Second
}

// HeartbeatExpiry returns how stale a heartbeat must be before the book is
// reclaimed for another worker.
func (w Workflow) HeartbeatExpiry() time.Duration {
	return time.Duration(w.HeartbeatTimeout) * time.Second
}
