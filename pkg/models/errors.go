package models

import "errors"

var (
	// ErrUntrainedModel is returned by query methods called before the first successful Train.
	ErrUntrainedModel = errors.New("model not trained")

	// ErrUnknownUser is returned by the collaborative filter for users absent at training time.
	ErrUnknownUser = errors.New("unknown user")

	ErrUnknownItem = errors.New("unknown item")

	// ErrInvalidRank is returned when the factorization rank does not fit the rating matrix.
	ErrInvalidRank = errors.New("invalid factorization rank")

	ErrInvalidCount = errors.New("invalid recommendation count")

	ErrInvalidInput = errors.New("invalid input")

	// ErrTrainingInProgress is returned when a retrain is requested while another is running.
	ErrTrainingInProgress = errors.New("training already in progress")
)
