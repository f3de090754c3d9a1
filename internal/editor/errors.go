/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import "errors"

var (
	// ErrRejected marks a command that failed validation and changed nothing.
	// Callers treat it as "nothing to do", not as a fault.
	ErrRejected = errors.New("editor: command rejected")
	// ErrNoSnapshotLoaded is returned by SaveLoadedSnapshot outside an editing session.
	ErrNoSnapshotLoaded = errors.New("editor: no snapshot loaded")
)

// IsRejected reports whether err is a swallowed validation rejection.
func IsRejected(err error) bool { return errors.Is(err, ErrRejected) }
