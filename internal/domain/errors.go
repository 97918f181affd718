package domain

import "errors"

var (
	ErrInvalidQuery         = errors.New("invalid query")
	ErrProviderUnavailable  = errors.New("news provider unavailable")
	ErrProviderRejected     = errors.New("news provider rejected request")
	ErrClassificationFailed = errors.New("classification failed")
	ErrStorageUnavailable   = errors.New("storage unavailable")
)
