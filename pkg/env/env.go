package env

import (
	"os"
	"strconv"
	"strings"
)

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// Bool reports whether key holds a truthy value ("1", "true", "yes").
func Bool(key string) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if strings.EqualFold(val, "yes") {
		return true
	}
	b, err := strconv.ParseBool(val)
	return err == nil && b
}
