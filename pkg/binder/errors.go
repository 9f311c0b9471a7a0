package binder

import "errors"

var (
	ErrUnsupportedMediaType = errors.New("binder.unsupported_media_type")
	ErrMissingContentType   = errors.New("binder.missing_content_type")
	ErrInvalidJSON          = errors.New("binder.invalid_json")
	ErrInvalidForm          = errors.New("binder.invalid_form")
	ErrInvalidQuery         = errors.New("binder.invalid_query")
	ErrInvalidPath          = errors.New("binder.invalid_path")
)
