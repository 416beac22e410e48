// Copyright (c) 2023 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import (
	"os"
	"strings"
)

func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}

	return fallback
}

// ExpandEnv replaces ${VAR} and ${VAR:default} references in s.
// Unset or empty variables take the default, or "" when none is given.
func ExpandEnv(s string) string {
	return os.Expand(s, func(key string) string {
		name, fallback, _ := strings.Cut(key, ":")
		return GetEnv(name, fallback)
	})
}
