// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"database/sql"
	"strconv"
	"time"
)

// NullInt64 wraps a value in a valid sql.NullInt64.
func NullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

// ParseNullInt64 parses a form value into sql.NullInt64. Empty, zero, or
// unparseable input yields the invalid null.
func ParseNullInt64(s string) sql.NullInt64 {
	if s == "" || s == "0" {
		return sql.NullInt64{}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

// NullString returns a NullString that is valid only for non-empty input.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullTime wraps a time in a valid sql.NullTime.
func NullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}
