package summary

import (
	"errors"
	"testing"
	"time"
)

func seg(start time.Duration, text string) Segment {
	return Segment{Start: start, Duration: time.Second, Text: text}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Transcript
		want string
	}{
		{
			name: "concatenates in start order",
			in:   Transcript{seg(2*time.Second, "world."), seg(0, "Hello")},
			want: "Hello world.",
		},
		{
			name: "strips bracketed annotations",
			in:   Transcript{seg(0, "[Music] Welcome back. (inaudible) Let's begin.")},
			want: "Welcome back. Let's begin.",
		},
		{
			name: "strips caption markup",
			in:   Transcript{seg(0, "<c>Hello</c> <i>there</i> viewers.")},
			want: "Hello there viewers.",
		},
		{
			name: "collapses whitespace",
			in:   Transcript{seg(0, "too   many\n\nspaces   here.")},
			want: "too many spaces here.",
		},
		{
			name: "drops adjacent duplicate sentences",
			in:   Transcript{seg(0, "Boil the water. Boil the water! And add salt.")},
			want: "Boil the water. And add salt.",
		},
		{
			name: "keeps non-adjacent repeats",
			in:   Transcript{seg(0, "Stir it. Wait a bit. Stir it.")},
			want: "Stir it. Wait a bit. Stir it.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeEmpty(t *testing.T) {
	cases := []Transcript{
		nil,
		{},
		{seg(0, ""), seg(time.Second, "   ")},
		{seg(0, "[Applause]")},
	}
	for _, tr := range cases {
		if _, err := Normalize(tr); !errors.Is(err, ErrEmptyTranscript) {
			t.Errorf("Normalize(%v) error = %v, want ErrEmptyTranscript", tr, err)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	in := Transcript{
		seg(0, "[Music]  First boil   water."),
		seg(time.Second, "First boil water."),
		seg(2*time.Second, "Then add <c>salt</c> and pasta!"),
	}
	once, err := Normalize(in)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	twice, err := Normalize(Transcript{seg(0, once)})
	if err != nil {
		t.Fatalf("Normalize (second pass) error: %v", err)
	}
	if once != twice {
		t.Errorf("not idempotent:\n first = %q\nsecond = %q", once, twice)
	}
}
