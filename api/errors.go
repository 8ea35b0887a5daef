// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/blinklabs-io/crowdfund/identity"
	"github.com/blinklabs-io/crowdfund/ledger"
	"github.com/blinklabs-io/crowdfund/names"
)

// statusForError maps a service error to an HTTP status code
func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidArgument),
		errors.Is(err, identity.ErrInvalidPrincipal),
		errors.Is(err, ErrInvalidPaginationParameters):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrNotYetApproved),
		errors.Is(err, ledger.ErrNothingToClaim),
		errors.Is(err, names.ErrAlreadyRegistered),
		errors.Is(err, names.ErrNameTaken):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrOverflow):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// writeServiceError writes the response for an error returned by a service.
// Internal errors are logged and not exposed to the client
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(
			"request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
