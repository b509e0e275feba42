package usecase

import "errors"

var (
	ErrIndexOutOfRange        = errors.New("index out of range")
	ErrRecognitionUnavailable = errors.New("speech recognition is not available")
	ErrRecognitionCancelled   = errors.New("speech recognition cancelled")
	ErrSynthesisInitFailed    = errors.New("speech synthesis failed to initialize")
	ErrControllerClosed       = errors.New("interaction controller is closed")
)
