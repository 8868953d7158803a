package instance

import "github.com/angelmondragon/packfinderz-fulfillment/pkg/env"

const defaultID = "worker-0"

// GetID names this process for lock ownership and logs. WORKER_ID wins, then
// the platform dyno name, then the container hostname.
func GetID() string {
	if id := env.First("WORKER_ID", "DYNO", "HOSTNAME"); id != "" {
		return id
	}
	return defaultID
}
