package service

// DefaultChunkSize is the chunk length in characters used when no explicit
// size is configured. Character count, not token count: slices may split
// mid-word, which is the chunking policy of record.
const DefaultChunkSize = 512

// chunkText splits text into consecutive, non-overlapping slices of exactly
// size characters; the final slice holds the remainder. Counting is by rune,
// so multi-byte text never splits inside a code point. Empty input yields no
// chunks, and no trailing empty chunk is ever emitted.
func chunkText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if text == "" {
		return nil
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
