package instance

import "os"

// GetID identifies the running worker for lock ownership and logs.
// WORKER_ID wins, then the hostname.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
