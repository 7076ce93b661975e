package model

import "errors"

var (
	ErrDocumentNotFound     = errors.New("document do not exist")
	ErrEventDoesNotExist    = errors.New("event do not exist")
	ErrQuestionDoesNotExist = errors.New("question do not exist")
	ErrUserDoesNotExist     = errors.New("user do not exist")
)
