package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ProctorChannel returns the Redis PubSub channel the external proctoring
// subsystem publishes violation events on for one monitoring session.
func (r *CacheKeyStruct) ProctorChannel(handle string) string {
	return fmt.Sprintf("proctor:%s:events", handle)
}

// ProctorSessionKey returns the cache key holding a monitoring session record.
func (r *CacheKeyStruct) ProctorSessionKey(handle string) string {
	return fmt.Sprintf("proctor:%s:session", handle)
}

var CacheKey = NewCacheKeyStruct()
