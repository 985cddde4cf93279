package main

import "testing"

func TestPreviewURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080/api/stream"},
		{"0.0.0.0:9000", "http://localhost:9000/api/stream"},
		{"127.0.0.1:8080", "http://127.0.0.1:8080/api/stream"},
		{"[::]:8080", "http://localhost:8080/api/stream"},
		{"[::1]:8080", "http://[::1]:8080/api/stream"},
		{"camera.local", "http://camera.local/api/stream"},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := previewURL(tt.addr); got != tt.want {
				t.Errorf("previewURL(%q) = %q, want %q", tt.addr, got, tt.want)
			}
		})
	}
}
