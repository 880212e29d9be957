// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It wraps the common body decoding patterns (JSON and HTML forms) behind a
size limit, ensuring consistent error handling across handlers.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/letsworkapps/authportal/internal/platform/apperr"
	"github.com/letsworkapps/authportal/internal/platform/validate"
)

// maxBodyBytes bounds every decoded request body.
const maxBodyBytes = 64 << 10

// ErrInvalidForm is returned when a form body cannot be parsed.
var ErrInvalidForm = apperr.ValidationError("Invalid form submission")

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - writer: http.ResponseWriter (used to enforce the body size limit)
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	request.Body = http.MaxBytesReader(writer, request.Body, maxBodyBytes)
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Form parses a url-encoded form body and returns its values.

Returns:
  - url.Values: The posted fields
  - error: ErrInvalidForm if the body is malformed or too large
*/
func Form(writer http.ResponseWriter, request *http.Request) (url.Values, error) {
	request.Body = http.MaxBytesReader(writer, request.Body, maxBodyBytes)
	if err := request.ParseForm(); err != nil {
		return nil, ErrInvalidForm.WithCause(err)
	}
	return request.PostForm, nil
}
