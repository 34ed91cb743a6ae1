package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescriptionFromFilename(t *testing.T) {
	cases := map[string]string{
		"2026-03-01-001-create-users.sql":              "create users",
		"2026-03-01-004-create-meals-and-contents.sql": "create meals and contents",
		"no-prefix.sql":                                "no prefix",
	}
	for in, want := range cases {
		assert.Equal(t, want, descriptionFromFilename(in), in)
	}
}

func TestPendingMigrations_SkipsAppliedAndSorts(t *testing.T) {
	files := []string{
		"db/2026-03-02-001-b.sql",
		"db/2026-03-01-001-a.sql",
		"db/2026-03-03-001-c.sql",
	}
	applied := map[string]bool{"2026-03-01-001-a.sql": true}

	got := pendingMigrations(files, applied)

	assert.Equal(t, []string{"db/2026-03-02-001-b.sql", "db/2026-03-03-001-c.sql"}, got)
}

func TestPendingMigrations_AllApplied(t *testing.T) {
	got := pendingMigrations([]string{"db/x.sql"}, map[string]bool{"x.sql": true})
	assert.Empty(t, got)
}
