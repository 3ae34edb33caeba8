package errors

import "errors"

var (
	ErrDuplicateWebhookEvent = errors.New("webhook event already processed")
	ErrGatewayRejected       = errors.New("payment gateway rejected the request")
	ErrConcurrentUpdate      = errors.New("booking modified concurrently")
)
