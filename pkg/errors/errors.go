package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEntityExists = errors.New("entity already exists")
	ErrEmptyKey     = errors.New("empty key")
	ErrInvalidData  = errors.New("invalid data type")
	ErrMissingValue = errors.New("missing required value")
	ErrInvalidValue = errors.New("invalid value")

	// ErrRendezvous is returned when the coordinator handshake fails. It is
	// fatal to the participant process.
	ErrRendezvous = errors.New("rendezvous request failed")
	// ErrShutdownRequested signals an operator interrupt that arrived before
	// a session existed. Callers exit cleanly.
	ErrShutdownRequested = errors.New("shutdown requested")
	// ErrHeartbeatFailure is returned by the driver when the heartbeat
	// activity died before the coordinator finished the session.
	ErrHeartbeatFailure = errors.New("heartbeat failure")
	// ErrProtocolViolation reports access to the state record without
	// holding it. It is a programming error.
	ErrProtocolViolation = errors.New("state record must be locked")
	// ErrMalformedResult is returned when a trainer produces a result that
	// cannot be uploaded.
	ErrMalformedResult = errors.New("malformed training result")

	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrUnknownSignal    = errors.New("unknown heartbeat state")
)
