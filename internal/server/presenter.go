/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package server

import (
	"context"
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/botobag/graphqlext/failure"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorPresenter presents an error to a http.ResponseWriter.
type ErrorPresenter interface {
	// Write sends the given error to w.
	Write(w http.ResponseWriter, err error)
}

// StatusOf maps the kind of err to a HTTP status code.
func StatusOf(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}

	switch failure.KindOf(err) {
	case failure.ErrKindNotFound:
		return http.StatusNotFound
	case failure.ErrKindConfig:
		return http.StatusBadRequest
	case failure.ErrKindLifecycle:
		return http.StatusServiceUnavailable
	case failure.ErrKindRecursionLimitExceeded:
		return http.StatusUnprocessableEntity
	case failure.ErrKindOutOfMemory:
		return http.StatusInsufficientStorage
	}
	return http.StatusInternalServerError
}

// DefaultErrorPresenter writes errors as a JSON object with an "error" field.
type DefaultErrorPresenter struct {
	Logger zerolog.Logger
}

// Write implements ErrorPresenter.
func (presenter DefaultErrorPresenter) Write(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		presenter.Logger.Error().Err(err).Int("status", status).Msg("request failed")
	}

	// Plain errors are wrapped so they are serialized by the failure encoder.
	var body struct {
		Error *failure.Error `json:"error"`
	}
	if e, ok := err.(*failure.Error); ok {
		body.Error = e
	} else {
		body.Error = &failure.Error{Message: err.Error()}
	}

	writeJSON(w, status, body, presenter.Logger)
}

func writeJSON(w http.ResponseWriter, status int, value interface{}, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	stream := json.BorrowStream(w)
	defer json.ReturnStream(stream)

	stream.WriteVal(value)
	stream.WriteRaw("\n")
	if err := stream.Flush(); err != nil {
		logger.Warn().Err(err).Msg("cannot write response")
	}
}
