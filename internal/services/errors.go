package services

import "errors"

var (
	// ErrEmptyUpload means the uploaded export had no content.
	ErrEmptyUpload = errors.New("uploaded file is empty")

	// ErrMissingFilename means an upload carried no usable filename.
	ErrMissingFilename = errors.New("uploaded file has no name")
)
