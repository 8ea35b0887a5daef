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

package ledger

import "errors"

var (
	// ErrInvalidArgument is returned when a precondition on the input fails
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned for an unknown campaign
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the caller may not perform the operation
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotYetApproved is returned when a withdrawal needs approvals that are missing
	ErrNotYetApproved = errors.New("milestone not yet approved")
	// ErrNothingToClaim is returned when there is no unlocked value or reward to release
	ErrNothingToClaim = errors.New("nothing to claim")
	// ErrOverflow is returned when an amount would exceed the representable range
	ErrOverflow = errors.New("amount overflow")
)
