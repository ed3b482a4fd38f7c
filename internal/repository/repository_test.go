package repository

import (
	"errors"
	"testing"
)

func TestParseTaskSortEmptyMeansStorageOrder(t *testing.T) {
	sort, err := ParseTaskSort("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sort != nil {
		t.Fatalf("expected nil sort, got %+v", sort)
	}
}

func TestParseTaskSortAcceptsAllowListedFields(t *testing.T) {
	cases := []struct {
		field     string
		direction string
		want      SortDirection
	}{
		{"title", "ASC", SortAsc},
		{"dueDate", "desc", SortDesc},
		{"createdAt", "", SortAsc},
		{"id", "DESC", SortDesc},
	}
	for _, tc := range cases {
		sort, err := ParseTaskSort(tc.field, tc.direction)
		if err != nil {
			t.Fatalf("ParseTaskSort(%q, %q): %v", tc.field, tc.direction, err)
		}
		if sort == nil || string(sort.Field) != tc.field || sort.Direction != tc.want {
			t.Fatalf("ParseTaskSort(%q, %q) = %+v", tc.field, tc.direction, sort)
		}
	}
}

func TestParseTaskSortRejectsUnknownColumn(t *testing.T) {
	if _, err := ParseTaskSort("password_hash", "ASC"); !errors.Is(err, ErrInvalidSort) {
		t.Fatalf("expected ErrInvalidSort, got %v", err)
	}
	if _, err := ParseTaskSort("title; DROP TABLE tasks", "ASC"); !errors.Is(err, ErrInvalidSort) {
		t.Fatalf("expected ErrInvalidSort, got %v", err)
	}
}

func TestParseTaskSortRejectsUnknownDirection(t *testing.T) {
	if _, err := ParseTaskSort("title", "SIDEWAYS"); !errors.Is(err, ErrInvalidSort) {
		t.Fatalf("expected ErrInvalidSort, got %v", err)
	}
}
