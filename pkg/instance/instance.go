package instance

import "os"

// GetID identifies the running process replica for log correlation. It
// prefers WORKER_ID, falls back to the Heroku-style DYNO variable, and
// defaults to "local" when neither is set.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	return "local"
}
