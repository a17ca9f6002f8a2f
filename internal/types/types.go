// Package types holds the wire-level shapes shared by the transport,
// the room actors and the HTTP layer: the error taxonomy, the command
// envelope and the projected event. The simulation core never returns
// these — failures inside a game are locally recovered; AppError is
// for the ambient layers that must answer a client.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrUnauthorized ErrorCode = "unauthorized"
	ErrForbidden    ErrorCode = "forbidden"
	ErrBadRequest   ErrorCode = "bad_request"
	ErrConflict     ErrorCode = "conflict"
	ErrInternal     ErrorCode = "internal"
	ErrNotFound     ErrorCode = "not_found"
	ErrRateLimited  ErrorCode = "rate_limited"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewError(code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

func WrapError(code ErrorCode, msg string, err error) *AppError {
	return &AppError{Code: code, Message: msg, Err: err}
}

func Is(err error, code ErrorCode) bool {
	var app *AppError
	if errors.As(err, &app) {
		return app.Code == code
	}
	return false
}

// CommandEnvelope is one client command addressed to a room. The
// payload stays raw until the game decodes it; the idempotency key
// dedupes retries across reconnects.
type CommandEnvelope struct {
	CommandID      string          `json:"command_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	RoomID         string          `json:"room_id"`
	Type           string          `json:"type"`
	ActorUserID    string          `json:"actor_user_id"`
	Payload        json.RawMessage `json:"data"`
}

// CommandResult acknowledges one command. The applied sequence range
// covers the outbound events the command produced.
type CommandResult struct {
	CommandID      string `json:"command_id"`
	Status         string `json:"status"`
	Reason         string `json:"reason,omitempty"`
	AppliedSeqFrom int64  `json:"applied_seq_from"`
	AppliedSeqTo   int64  `json:"applied_seq_to"`
}

// ProjectedEvent is one outbound event as a particular viewer is
// allowed to see it.
type ProjectedEvent struct {
	Seq       int64           `json:"seq"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	ServerTS  int64           `json:"server_ts"`
}
