// Copyright 2025 Poiesic Systems
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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidArticle indicates an Article failed validation.
	ErrInvalidArticle = errors.New("invalid article")

	// ErrInvalidSource indicates a Source failed validation.
	ErrInvalidSource = errors.New("invalid source")

	// ErrInvalidURL indicates a URL is malformed or uses an unsupported scheme.
	ErrInvalidURL = errors.New("invalid url")

	// ErrUnsafeHost indicates a URL points at localhost, loopback or a private network.
	ErrUnsafeHost = errors.New("url host is not allowed")

	// ErrEmptyNaturalKey indicates the URL (articles) or name (sources) is empty.
	ErrEmptyNaturalKey = errors.New("natural key cannot be empty")

	// ErrInvalidLane indicates a LaneConfig failed validation.
	ErrInvalidLane = errors.New("invalid lane config")

	// ErrInvalidCategory indicates a category the provider does not support.
	ErrInvalidCategory = errors.New("unsupported category")

	// ErrInvalidCountry indicates a country code the provider does not support.
	ErrInvalidCountry = errors.New("unsupported country")

	// ErrInvalidLanguage indicates a language code the provider does not support.
	ErrInvalidLanguage = errors.New("unsupported language")
)
