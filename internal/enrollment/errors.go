package enrollment

import "errors"

var (
	// ErrPersistence wraps every failure of the durable collaborator.
	ErrPersistence = errors.New("persistence failure")
	// ErrUnknownUser is returned for operations on a user without a profile.
	ErrUnknownUser = errors.New("unknown user")
	// ErrInvalidUserID is returned for empty user ids.
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrInvalidSample is returned for empty or non-finite descriptors and out of range confidences.
	ErrInvalidSample = errors.New("invalid sample")
	// ErrInvalidSettings is returned for inconsistent store settings.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrUserExists is returned when importing over an existing user without overwrite.
	ErrUserExists = errors.New("user already exists")
)
