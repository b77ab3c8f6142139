package event

import "errors"

var (
	ErrMalformedPayload = errors.New("malformed event payload")

	ErrMissingUserID = errors.New("missing user id")

	ErrMissingAction = errors.New("missing action")

	ErrUnknownAction = errors.New("unknown action")
)
