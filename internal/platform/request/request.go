// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mahirlabib/credo/internal/platform/apperr"
	"github.com/mahirlabib/credo/internal/platform/ctxutil"
	"github.com/mahirlabib/credo/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
SubjectID extracts the authenticated account id from the request context.

Returns an empty string if the request is anonymous.
*/
func SubjectID(request *http.Request) string {
	return ctxutil.GetSubjectID(request.Context())
}

/*
RequiredSubjectID ensures the request is authenticated and returns the account id.

Returns:
  - string: The authenticated account id
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredSubjectID(request *http.Request) (string, error) {
	subjectID := ctxutil.GetSubjectID(request.Context())
	if subjectID == "" {
		return "", apperr.Unauthorized("Unauthorized, please login first")
	}
	return subjectID, nil
}
