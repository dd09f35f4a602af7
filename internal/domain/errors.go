package domain

import "errors"

var (
	ErrConfig          = errors.New("broker configuration is missing or invalid")
	ErrConnection      = errors.New("broker connection failed")
	ErrFetch           = errors.New("rates fetch failed")
	ErrPublishRejected = errors.New("message was not accepted by the broker")
	ErrDecode          = errors.New("message body is not a rates snapshot")
	ErrNothingRecorded = errors.New("no processed rates recorded yet")
)
