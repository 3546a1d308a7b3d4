package main

import "testing"

func TestResolveTimeout(t *testing.T) {
	cases := []struct {
		label   string
		flagSec float64
		flagSet bool
		fileSec float64
		want    float64
	}{
		{"file value fills unset flag", 10, false, 30, 30},
		{"explicit flag at default value wins over file", 10, true, 30, 10},
		{"explicit flag wins over file", 5, true, 30, 5},
		{"flag default kept without file value", 10, false, 0, 10},
		{"explicit flag kept without file value", 7, true, 0, 7},
	}
	for _, c := range cases {
		if got := resolveTimeout(c.flagSec, c.flagSet, c.fileSec); got != c.want {
			t.Errorf("%s: resolveTimeout(%v, %v, %v) = %v, want %v",
				c.label, c.flagSec, c.flagSet, c.fileSec, got, c.want)
		}
	}
}
