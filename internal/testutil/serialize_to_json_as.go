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

package testutil

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/onsi/gomega/types"
)

// Map keys are sorted on encoding, so two equal documents always have the same canonical form.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonMatcher compares the canonical JSON forms of actual and expected.
type jsonMatcher struct {
	expected interface{}

	// Canonical forms computed by the last Match, shown in failure messages
	actualJSON   string
	expectedJSON string
}

// SerializeToJSONAs returns a Gomega matcher that succeeds when actual and expected encode to the same
// JSON document, ignoring key order and formatting. A []byte or string on either side is taken as
// JSON data already, so response bodies can be matched directly.
func SerializeToJSONAs(expected interface{}) types.GomegaMatcher {
	return &jsonMatcher{
		expected: expected,
	}
}

// canonicalJSON decodes the JSON form of v into generic values and encodes it again.
func canonicalJSON(v interface{}) (string, error) {
	var data []byte
	switch v := v.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return "", err
		}
	}

	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", err
	}
	canonical, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return "", err
	}
	return string(canonical), nil
}

// Match implements types.GomegaMatcher.
func (matcher *jsonMatcher) Match(actual interface{}) (success bool, err error) {
	matcher.actualJSON, err = canonicalJSON(actual)
	if err != nil {
		return false, fmt.Errorf("SerializeToJSONAs matcher cannot handle actual %#v: %s", actual, err)
	}

	matcher.expectedJSON, err = canonicalJSON(matcher.expected)
	if err != nil {
		return false, fmt.Errorf("SerializeToJSONAs matcher cannot handle expected %#v: %s", matcher.expected, err)
	}

	return matcher.actualJSON == matcher.expectedJSON, nil
}

// FailureMessage implements types.GomegaMatcher.
func (matcher *jsonMatcher) FailureMessage(actual interface{}) (message string) {
	return fmt.Sprintf("Expected JSON\n%s\nto equal\n%s", matcher.actualJSON, matcher.expectedJSON)
}

// NegatedFailureMessage implements types.GomegaMatcher.
func (matcher *jsonMatcher) NegatedFailureMessage(actual interface{}) (message string) {
	return fmt.Sprintf("Expected JSON\n%s\nnot to equal\n%s", matcher.actualJSON, matcher.expectedJSON)
}
