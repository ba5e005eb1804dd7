package service

import (
	"context"
	"errors"

	messageservice "community-platform/backend/internal/message/service"
)

// messageErrorCode maps message service failures to wire error codes.
func messageErrorCode(err error) string {
	switch {
	case errors.Is(err, messageservice.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, messageservice.ErrNotFound):
		return "not_found"
	case errors.Is(err, messageservice.ErrStorage):
		return "storage_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}
