package controller

const (
	// eventBufSize bounds the event fan-out channel; slow consumers drop.
	eventBufSize = 32
)
