package db_test

import (
	"database/sql"
	"testing"

	"campushub/db"

	"github.com/stretchr/testify/assert"
)

func TestSplitTags(t *testing.T) {
	tests := []struct {
		name     string
		tags     sql.NullString
		expected []string
	}{
		{
			name:     "null column yields empty slice",
			tags:     sql.NullString{},
			expected: []string{},
		},
		{
			name:     "single tag",
			tags:     sql.NullString{String: "welcome", Valid: true},
			expected: []string{"welcome"},
		},
		{
			name:     "comma separated tags",
			tags:     sql.NullString{String: "welcome,orientation,freshers", Valid: true},
			expected: []string{"welcome", "orientation", "freshers"},
		},
		{
			name:     "whitespace around tags is trimmed",
			tags:     sql.NullString{String: " welcome , orientation ", Valid: true},
			expected: []string{"welcome", "orientation"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := db.SplitTags(tt.tags)
			assert.Equal(t, tt.expected, result)
			assert.NotNil(t, result)
		})
	}
}
