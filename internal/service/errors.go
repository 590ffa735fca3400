// Package service holds the domain rules: membership checks, visibility,
// deletion scopes, reaction aggregation and presence. Services mutate through
// the repositories and publish domain events only after the mutation
// committed.
package service

import "errors"

var (
	ErrNotParticipant       = errors.New("not a chat participant")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidReplyTarget   = errors.New("reply target not in this chat")
	ErrCannotForwardDeleted = errors.New("cannot forward a deleted message")
	ErrInvalidMuteDuration  = errors.New("mute duration out of range")
	ErrInvalidMessageType   = errors.New("unknown message type")
	ErrEmptyMessage         = errors.New("empty message")
	ErrSelfChat             = errors.New("cannot open a chat with yourself")
)
