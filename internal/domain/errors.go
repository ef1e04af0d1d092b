package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidEvent  = errors.New("invalid event")
	ErrUnknownToken  = errors.New("unknown token")
	ErrWSDisconnect  = errors.New("websocket disconnected")
	ErrStreamExhaust = errors.New("reconnect attempts exhausted")
	ErrOrderRejected = errors.New("order rejected")
	ErrInvalidOrder  = errors.New("invalid order parameters")
	ErrSigningFailed = errors.New("signing failed")
	ErrNoPrivateKey  = errors.New("private key not configured")
)
