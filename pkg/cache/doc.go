// Package cache provides a generic in-process LRU cache with optional TTL.
package cache
