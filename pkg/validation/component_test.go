// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateComponent(t *testing.T) {
	tests := []struct {
		name      string
		component string
		wantErr   bool
	}{
		{"short class", "com.oculus.explore/.ExploreActivity", false},
		{"full class", "com.oculus.panelapp.people/com.oculus.panelapp.people.PeopleShelfActivity", false},
		{"underscore", "com.example_app.x/.Main_Activity", false},
		{"bare class", "com.example.app/MainActivity", false},

		{"empty", "", true},
		{"no slash", "com.oculus.explore.ExploreActivity", true},
		{"single segment package", "explore/.ExploreActivity", true},
		{"quote injection", `com.a.b/.C"; reboot; "`, true},
		{"dollar expansion", "com.a.b/.C$(reboot)", true},
		{"backtick", "com.a.b/.C`id`", true},
		{"newline", "com.a.b/.C\nreboot", true},
		{"space", "com.a.b/.C D", true},
		{"trailing dot", "com.a.b/.C.", true},
		{"too long", "com.a.b/." + strings.Repeat("A", 300), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateComponent(tt.component)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateComponents(t *testing.T) {
	assert.NoError(t, ValidateComponents(nil))
	assert.NoError(t, ValidateComponents([]string{"com.a.b/.C", "com.d.e/.F"}))

	err := ValidateComponents([]string{"com.a.b/.C", "bad", "worse;"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bad"`)
	assert.Contains(t, err.Error(), `"worse;"`)
	assert.NotContains(t, err.Error(), "com.a.b")
}

func TestSanitizeDomain(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"ads.example.com", "ads.example.com", false},
		{"  Ads.Example.COM. ", "ads.example.com", false},
		{"localhost", "localhost", false},
		{"x-1.y_2.net", "x-1.y_2.net", false},

		{"", "", true},
		{"   ", "", true},
		{"a..b", "", true},
		{"-a.com", "", true},
		{"a-.com", "", true},
		{"a.com/path", "", true},
		{"a.com;rm", "", true},
		{strings.Repeat("a", 64) + ".com", "", true},
		{strings.Repeat("abcdefgh.", 30) + "com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := SanitizeDomain(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
