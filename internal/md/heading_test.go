package md

import "testing"

func TestParseHeading_PriorityOrder(t *testing.T) {
	tests := []struct {
		line  string
		level Level
		text  string
	}{
		{"# Overview\n", H1, "Overview\n"},
		{"## Battery\n", H2, "Battery\n"},
		{"### Charging\n", H3, "Charging\n"},
		{"#### too deep\n", None, ""},
		{"#NoSpace\n", None, ""},
		{"plain content line\n", None, ""},
		{"", None, ""},
	}
	for _, tt := range tests {
		level, text := ParseHeading(tt.line)
		if level != tt.level {
			t.Errorf("ParseHeading(%q): level = %v, want %v", tt.line, level, tt.level)
		}
		if text != tt.text {
			t.Errorf("ParseHeading(%q): text = %q, want %q", tt.line, text, tt.text)
		}
	}
}

func TestHeading_RoundTrip(t *testing.T) {
	for _, level := range []Level{H1, H2, H3} {
		line := Heading("Section", level)
		got, text := ParseHeading(line)
		if got != level || text != "Section" {
			t.Errorf("ParseHeading(Heading(...)) = %v, %q, want %v, %q", got, text, level, "Section")
		}
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Battery / Range\\Info\n", "BatteryRangeInfo"},
		{"  Getting Started  ", "GettingStarted"},
		{"Maintenance", "Maintenance"},
		{"a/b\\c d\n", "abcd"},
	}
	for _, tt := range tests {
		if got := SanitizeTitle(tt.in); got != tt.want {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestImage(t *testing.T) {
	if got := Image("", "http://x/img.jpg"); got != "![](http://x/img.jpg)" {
		t.Errorf("Image = %q", got)
	}
	if got := Image("Image a scooter", "http://x/img.jpg"); got != "![Image a scooter](http://x/img.jpg)" {
		t.Errorf("Image with alt = %q", got)
	}
}
