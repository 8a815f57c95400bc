package chat

import "strings"

// splitWords breaks streamed text into word-sized chunks, each word carrying
// the whitespace that follows it. The split preserves the input exactly:
// concatenating the chunks reproduces the original string, including any
// leading whitespace, which is emitted attached to the first word.
func splitWords(text string) []string {
	if text == "" {
		return nil
	}

	var chunks []string
	start := 0
	inSpace := false
	sawWord := false
	for i, r := range text {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if inSpace && !isSpace && sawWord {
			// Space-to-word boundary after at least one word: cut here
			// so leading whitespace stays glued to the first word.
			chunks = append(chunks, text[start:i])
			start = i
		}
		if !isSpace {
			sawWord = true
		}
		inSpace = isSpace
	}
	chunks = append(chunks, text[start:])
	return chunks
}

// wordChunker rechunks an arbitrary stream of text deltas into word-level
// chunks. Partial words at the end of a delta are buffered until the next
// delta (or Flush) completes them.
type wordChunker struct {
	buf strings.Builder
}

// Write absorbs a delta and returns the complete word chunks now available.
func (c *wordChunker) Write(delta string) []string {
	c.buf.WriteString(delta)
	text := c.buf.String()

	// Find the last whitespace: everything up to and including it is
	// flushable; the remainder may be a word still streaming in.
	cut := strings.LastIndexAny(text, " \t\n\r")
	if cut < 0 {
		return nil
	}

	flushable := text[:cut+1]
	c.buf.Reset()
	c.buf.WriteString(text[cut+1:])
	return splitWords(flushable)
}

// Flush returns any buffered trailing word.
func (c *wordChunker) Flush() []string {
	if c.buf.Len() == 0 {
		return nil
	}
	out := splitWords(c.buf.String())
	c.buf.Reset()
	return out
}
