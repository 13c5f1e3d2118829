package instance

import "github.com/angelmondragon/storefront/pkg/env"

// GetID names the running storefront process for log correlation.
// STOREFRONT_INSTANCE_ID wins over the platform-provided DYNO.
func GetID() string {
	if id := env.Get("STOREFRONT_INSTANCE_ID", ""); id != "" {
		return id
	}
	return env.Get("DYNO", "local")
}
