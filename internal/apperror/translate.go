package apperror

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// Postgres error codes rewritten into client errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
	pgStringTooLong       = "22001"
	pgInvalidText         = "22P02"
	pgInvalidDatetime     = "22007"
	pgDatetimeOverflow    = "22008"
)

// CastError reports a value that cannot be converted to a field's type.
type CastError struct {
	Field string
	Value string
}

func (e *CastError) Error() string {
	return fmt.Sprintf("Invalid %s: %s.", e.Field, e.Value)
}

// Translate maps err onto the AppError taxonomy. AppErrors pass through;
// unknown errors become non-operational 500s.
func Translate(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var castErr *CastError
	if errors.As(err, &castErr) {
		return Wrap(err, http.StatusBadRequest, castErr.Error())
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return translatePg(err, pgErr)
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return Wrap(err, http.StatusBadRequest, "Invalid input data. "+strings.Join(msgs, ". "))
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return Wrap(err, http.StatusUnauthorized, "Token has expired. Please log in again!")
	}
	if isTokenError(err) {
		return Wrap(err, http.StatusUnauthorized, "Invalid token. Please log in again!")
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return Wrap(err, http.StatusBadRequest, fmt.Sprintf("Request body must not exceed %d bytes", maxBytes.Limit))
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Wrap(err, http.StatusBadRequest, "Invalid JSON body")
	}

	return Internal(err)
}

func translatePg(err error, pgErr *pgconn.PgError) *AppError {
	switch pgErr.Code {
	case pgUniqueViolation:
		return Wrap(err, http.StatusBadRequest,
			fmt.Sprintf("Duplicate field value: '%s'. Please use another value!", duplicateValue(pgErr.Detail)))
	case pgInvalidText, pgInvalidDatetime, pgDatetimeOverflow:
		return Wrap(err, http.StatusBadRequest, "Invalid input value: "+pgErr.Message)
	case pgNotNullViolation, pgCheckViolation, pgStringTooLong:
		return Wrap(err, http.StatusBadRequest, "Invalid input data. "+pgErr.Message)
	case pgForeignKeyViolation:
		return Wrap(err, http.StatusBadRequest, "Invalid reference: "+pgErr.Detail)
	}
	return Internal(err)
}

// duplicateValue extracts the value from a detail such as
// "Key (email)=(a@b.c) already exists.".
func duplicateValue(detail string) string {
	_, rest, ok := strings.Cut(detail, ")=(")
	if !ok {
		return detail
	}
	value, _, ok := strings.Cut(rest, ") already exists")
	if !ok {
		return strings.TrimSuffix(rest, ")")
	}
	return value
}

func isTokenError(err error) bool {
	for _, target := range []error{
		jwt.ErrTokenMalformed,
		jwt.ErrTokenSignatureInvalid,
		jwt.ErrTokenNotValidYet,
		jwt.ErrTokenUnverifiable,
		jwt.ErrTokenInvalidClaims,
		jwt.ErrTokenUsedBeforeIssued,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please provide a valid email"
	case "min":
		return fmt.Sprintf("%s must have at least %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
