package store

import "testing"

func TestBookmarkLabel(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"backups", "/srv/data", "backups"},
		{"", "/srv/data", "data"},
		{"", "/srv/data/", "data"},
		{"", "/", "/"},
		{"", "uploads", "uploads"},
	}
	for _, tt := range tests {
		if got := bookmarkLabel(tt.name, tt.path); got != tt.want {
			t.Errorf("bookmarkLabel(%q, %q) = %q, want %q", tt.name, tt.path, got, tt.want)
		}
	}
}
