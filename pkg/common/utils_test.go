// Copyright (c) 2023 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import "testing"

func TestExpandEnv(t *testing.T) {
	t.Setenv("PBIS_TEST_SET", "42")
	t.Setenv("PBIS_TEST_EMPTY", "")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"set variable", "value: ${PBIS_TEST_SET}", "value: 42"},
		{"set variable ignores default", "value: ${PBIS_TEST_SET:7}", "value: 42"},
		{"unset with default", "value: ${PBIS_TEST_UNSET:7}", "value: 7"},
		{"empty with default", "value: ${PBIS_TEST_EMPTY:7}", "value: 7"},
		{"unset without default", "value: ${PBIS_TEST_UNSET}", "value: "},
		{"no references", "value: plain", "value: plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
