package service

import (
	"errors"

	"stockflow/internal/apperr"
	"stockflow/internal/repository"
	"stockflow/pkg/validator"
)

// validate runs struct validation and reports failures as BAD_REQUEST.
func validate(in interface{}) error {
	if err := validator.Validate(in); err != nil {
		return apperr.New(apperr.BadRequest, err.Error())
	}
	return nil
}

// notFound turns a missing row into NOT_FOUND with msg and passes other errors through.
func notFound(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.New(apperr.NotFound, msg)
	}
	return err
}

// failure keeps typed errors and wraps anything else as INTERNAL.
func failure(err error, msg string) error {
	var typed *apperr.Error
	if errors.As(err, &typed) {
		return typed
	}
	return apperr.Wrap(apperr.Internal, err, msg)
}
