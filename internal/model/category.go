// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// Category is a node in the hierarchical category tree. Parent links form
// an adjacency list; Path is the materialized ancestry ("/1/4/9/") kept in
// sync by the store so subtree queries are a single LIKE, never recursive.
type Category struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Slug        string        `json:"slug"`
	Description string        `json:"description"`
	ParentID    sql.NullInt64 `json:"parent_id,omitempty"`
	Path        string        `json:"path"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsRoot returns true if the category has no parent.
func (c Category) IsRoot() bool {
	return !c.ParentID.Valid
}

// Depth returns the number of ancestors, derived from the path.
func (c Category) Depth() int {
	if c.Path == "" {
		return 0
	}
	return strings.Count(c.Path, "/") - 2
}

// ChildPath returns the path a direct child of this category must carry.
func (c Category) ChildPath() string {
	return c.Path
}

// PathFor builds the materialized path for a node with the given id under
// parentPath. Root nodes pass an empty parentPath.
func PathFor(parentPath string, id int64) string {
	if parentPath == "" {
		return "/" + strconv.FormatInt(id, 10) + "/"
	}
	return parentPath + strconv.FormatInt(id, 10) + "/"
}
