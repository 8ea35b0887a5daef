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
	"errors"
	"net/http"
	"strconv"
	"strings"
)

const (
	DefaultPaginationCount = 100
	MaxPaginationCount     = 100
	DefaultPaginationPage  = 1
	PaginationOrderAsc     = "asc"
	PaginationOrderDesc    = "desc"
)

var ErrInvalidPaginationParameters = errors.New("invalid pagination parameters")

type PaginationParams struct {
	Order string
	Count int
	Page  int
}

// ParsePagination reads the count, page and order query parameters. Count and
// page are clamped to their valid ranges
func ParsePagination(r *http.Request) (PaginationParams, error) {
	params := PaginationParams{
		Count: DefaultPaginationCount,
		Page:  DefaultPaginationPage,
		Order: PaginationOrderAsc,
	}
	query := r.URL.Query()
	if countParam := query.Get("count"); countParam != "" {
		count, err := strconv.Atoi(countParam)
		if err != nil {
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
		params.Count = count
	}
	if pageParam := query.Get("page"); pageParam != "" {
		page, err := strconv.Atoi(pageParam)
		if err != nil {
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
		params.Page = page
	}
	if orderParam := query.Get("order"); orderParam != "" {
		switch order := strings.ToLower(orderParam); order {
		case PaginationOrderAsc, PaginationOrderDesc:
			params.Order = order
		default:
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
	}
	params.Count = min(max(params.Count, 1), MaxPaginationCount)
	params.Page = max(params.Page, 1)
	return params, nil
}

// SetPaginationHeaders reports the total item and page counts
func SetPaginationHeaders(
	w http.ResponseWriter,
	totalItems int64,
	params PaginationParams,
) {
	totalItems = max(totalItems, 0)
	if params.Count < 1 {
		params.Count = DefaultPaginationCount
	}
	var totalPages int64
	if totalItems > 0 {
		totalPages = (totalItems + int64(params.Count) - 1) / int64(params.Count)
	}
	w.Header().Set("X-Pagination-Count-Total", strconv.FormatInt(totalItems, 10))
	w.Header().Set("X-Pagination-Page-Total", strconv.FormatInt(totalPages, 10))
}
