package platform

import "testing"

func TestParseMouseButton(t *testing.T) {
	tests := []struct {
		in   string
		want MouseButton
	}{
		{"left", MouseLeft},
		{"right", MouseRight},
		{"middle", MouseMiddle},
		{"Button.right", MouseRight},
		{"Button.middle", MouseMiddle},
		{"RIGHT", MouseRight},
		{"", MouseLeft},
		{"banana", MouseLeft},
	}
	for _, tt := range tests {
		if got := ParseMouseButton(tt.in); got != tt.want {
			t.Errorf("ParseMouseButton(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMouseButtonString(t *testing.T) {
	if MouseLeft.String() != "left" || MouseRight.String() != "right" || MouseMiddle.String() != "middle" {
		t.Fatalf("unexpected button names: %s %s %s", MouseLeft, MouseRight, MouseMiddle)
	}
}
