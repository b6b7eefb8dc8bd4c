// Copyright 2025 The Rivaas Authors
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

package dispatch

import (
	"strconv"
	"strings"
)

// acceptSpec is one parsed element of an Accept header.
type acceptSpec struct {
	value   string
	quality float64
}

// parseAccept splits an Accept header into its media ranges.
func parseAccept(header string) []acceptSpec {
	if header == "" {
		return nil
	}

	specs := make([]acceptSpec, 0, 4)
	start := 0
	for i := 0; i <= len(header); i++ {
		if i == len(header) || header[i] == ',' {
			if i > start {
				if spec := parseAcceptPart(header[start:i]); spec.value != "" {
					specs = append(specs, spec)
				}
			}
			start = i + 1
		}
	}
	return specs
}

// parseAcceptPart parses "type/subtype;q=0.8;param=x". Parameters other than q are ignored.
func parseAcceptPart(part string) acceptSpec {
	spec := acceptSpec{quality: 1.0}

	value, params, _ := strings.Cut(part, ";")
	spec.value = strings.TrimSpace(value)

	for params != "" {
		var param string
		param, params, _ = strings.Cut(params, ";")
		key, val, ok := strings.Cut(param, "=")
		if !ok || strings.TrimSpace(key) != "q" {
			continue
		}
		if q, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil && q >= 0 && q <= 1 {
			spec.quality = q
		}
	}
	return spec
}

// matchMediaType reports the quality and specificity with which spec accepts offer.
// Specificity: 3 = exact match, 2 = subtype wildcard, 1 = type wildcard, 0 = no match.
func matchMediaType(offer string, spec acceptSpec) (quality float64, specificity int) {
	offerType, offerSubtype := splitMediaType(offer)
	specType, specSubtype := splitMediaType(spec.value)

	switch {
	case specType == "*" && specSubtype == "*":
		return spec.quality, 1
	case offerType == "*" && offerSubtype == "*":
		return spec.quality, 1
	case specType == offerType && (specSubtype == "*" || offerSubtype == "*"):
		return spec.quality, 2
	case specType == offerType && specSubtype == offerSubtype:
		return spec.quality, 3
	}
	return 0, 0
}

// splitMediaType splits a media type into lower-cased type and subtype,
// dropping parameters. A value without '/' has subtype "*".
func splitMediaType(mediaType string) (string, string) {
	mediaType, _, _ = strings.Cut(mediaType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if t, sub, ok := strings.Cut(mediaType, "/"); ok {
		return t, sub
	}
	return mediaType, "*"
}

// consumes reports whether a method declaring types accepts contentType.
// A method without declared types, or a request without a body type, always matches.
func consumes(types []string, contentType string) bool {
	if len(types) == 0 || contentType == "" {
		return true
	}
	spec := acceptSpec{value: contentType, quality: 1}
	for _, t := range types {
		if _, s := matchMediaType(t, spec); s > 0 {
			return true
		}
	}
	return false
}

// produces scores a method declaring types against the parsed Accept header.
// It returns the best quality and specificity; quality 0 means not acceptable.
func produces(types []string, specs []acceptSpec) (float64, int) {
	if len(specs) == 0 {
		return 1, 0
	}
	if len(types) == 0 {
		types = []string{"*/*"}
	}

	bestQuality, bestSpecificity := 0.0, 0
	for _, t := range types {
		for _, spec := range specs {
			q, s := matchMediaType(t, spec)
			if s == 0 {
				continue
			}
			if q > bestQuality || (q == bestQuality && s > bestSpecificity) {
				bestQuality, bestSpecificity = q, s
			}
		}
	}
	return bestQuality, bestSpecificity
}
