package ecdh

import "errors"

// Errors surfaced by the key-agreement state machine.
var (
	// ErrProtocolMismatch is returned when the peer's confirmation tag
	// does not decrypt to the expected value.
	ErrProtocolMismatch = errors.New("ecdh: confirmation tag mismatch")

	// ErrInvalidMessage is returned when a wire message cannot be parsed
	// or fails validation.
	ErrInvalidMessage = errors.New("ecdh: invalid message")

	// ErrBadState is returned when an operation is attempted in a state
	// that does not allow it.
	ErrBadState = errors.New("ecdh: operation not allowed in current state")

	// ErrNotEstablished is returned when encrypting or decrypting before
	// the session is confirmed.
	ErrNotEstablished = errors.New("ecdh: session not established")
)
