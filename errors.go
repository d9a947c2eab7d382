package goSession

import "errors"

var (
	// ErrInvalidConfig wraps every [Config.Validate] failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrBuilderUsed is returned by a second [Builder.Build].
	ErrBuilderUsed = errors.New("builder already used")
	// ErrRedisRequired is returned when the redis storage backend is selected
	// without a client.
	ErrRedisRequired = errors.New("redis storage requires a redis client")
	// ErrNotReady is returned by client operations after Close.
	ErrNotReady = errors.New("client closed")
)
