package domain

import (
	"fmt"
	"strings"
)

// Tag is the view-time classification of a sensor reading.
type Tag string

const (
	TagError  Tag = "Error"
	TagNormal Tag = "Normal"
)

// Tags lists every tag in display order.
var Tags = []Tag{TagError, TagNormal}

// ParseTag parses a tag name case-insensitively.
func ParseTag(s string) (Tag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return TagError, nil
	case "normal":
		return TagNormal, nil
	}
	return "", fmt.Errorf("unknown tag %q", s)
}

// TaggedTable is a sensor table annotated with an Error/Normal tag per row.
// The tags are never written back to Table.
type TaggedTable struct {
	Date           Date       `json:"date"`
	Table          *Table     `json:"table"`
	Tags           []Tag      `json:"tags"`
	ErrorProcesses ProcessSet `json:"-"`
}

// Count returns the number of rows carrying tag.
func (tt *TaggedTable) Count(tag Tag) int {
	n := 0
	for _, t := range tt.Tags {
		if t == tag {
			n++
		}
	}
	return n
}

// Filter returns the rows carrying tag as a new table.
func (tt *TaggedTable) Filter(tag Tag) *Table {
	return tt.Table.Select(func(i int) bool { return tt.Tags[i] == tag })
}
