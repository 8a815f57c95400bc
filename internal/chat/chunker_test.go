package chat

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single word", "hello", []string{"hello"}},
		{"two words", "hello world", []string{"hello ", "world"}},
		{"trailing space", "hello world ", []string{"hello ", "world "}},
		{"leading space glued to first word", "  hi there", []string{"  hi ", "there"}},
		{"newlines", "one\ntwo\n", []string{"one\n", "two\n"}},
		{"only whitespace", "   ", []string{"   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitWords(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitWords(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitWordsLossless(t *testing.T) {
	inputs := []string{"hello world", " a  b\tc\n", "no-spaces", "\n\n", "trailing  "}
	for _, in := range inputs {
		if got := strings.Join(splitWords(in), ""); got != in {
			t.Errorf("splitWords(%q) lost content: rejoined to %q", in, got)
		}
	}
}

func TestWordChunkerBuffersPartialWords(t *testing.T) {
	var c wordChunker

	// "hel" is an incomplete word: nothing flushable yet.
	if got := c.Write("hel"); got != nil {
		t.Fatalf("expected no chunks for partial word, got %q", got)
	}

	// Completing the word and starting the next releases the first.
	got := c.Write("lo wor")
	if want := []string{"hello "}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Write = %q, want %q", got, want)
	}

	got = c.Write("ld done ")
	if want := []string{"world ", "done "}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Write = %q, want %q", got, want)
	}

	if got := c.Flush(); got != nil {
		t.Fatalf("expected empty flush, got %q", got)
	}
}

func TestWordChunkerFlushReleasesTrailingWord(t *testing.T) {
	var c wordChunker
	c.Write("final")
	got := c.Flush()
	if want := []string{"final"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Flush = %q, want %q", got, want)
	}
	if got := c.Flush(); got != nil {
		t.Fatalf("second flush should be empty, got %q", got)
	}
}

func TestWordChunkerLossless(t *testing.T) {
	deltas := []string{"Th", "e quick", " brown ", "fox\njum", "ps"}
	var c wordChunker
	var out strings.Builder
	for _, d := range deltas {
		for _, w := range c.Write(d) {
			out.WriteString(w)
		}
	}
	for _, w := range c.Flush() {
		out.WriteString(w)
	}
	if want := strings.Join(deltas, ""); out.String() != want {
		t.Errorf("rechunked stream = %q, want %q", out.String(), want)
	}
}
