package display

import "testing"

func TestHeadless(t *testing.T) {
	var s Sink = Headless{}
	for i := 0; i < 3; i++ {
		if s.Show(nil) {
			t.Fatal("Headless should never quit")
		}
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestIsQuit(t *testing.T) {
	tests := []struct {
		key  int
		want bool
	}{
		{-1, false},
		{'q', true},
		{0x100000 | 'q', true},
		{'Q', false},
		{27, false},
	}
	for _, tt := range tests {
		if got := isQuit(tt.key); got != tt.want {
			t.Errorf("isQuit(%#x) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
