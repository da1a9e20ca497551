// Copyright 2025 RepoLens Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package ingestion

import "unicode"

// DefaultChunkSize is the default maximum chunk length in characters.
const DefaultChunkSize = 1000

// ContentChunk is one bounded segment of a file's text, ready for
// embedding or prompt inclusion. Chunks are never mutated after
// creation.
type ContentChunk struct {
	Text           string `json:"text"`
	Index          int    `json:"index"`
	TotalChunks    int    `json:"total_chunks"`
	SourceFilePath string `json:"source_file_path"`
}

// Chunk splits text into segments of at most maxChunkSize characters,
// cutting on sentence boundaries where possible. A single sentence
// longer than maxChunkSize becomes its own oversized chunk rather than
// being split mid-word. Whitespace between sentences inside a chunk is
// kept verbatim; only whitespace at chunk boundaries is dropped.
// Identical input always yields identical output.
func Chunk(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultChunkSize
	}
	runes := []rune(text)
	spans := sentenceSpans(runes)
	if len(spans) == 0 {
		return nil
	}

	var chunks []string
	current := spans[0]
	for _, s := range spans[1:] {
		// Extending keeps the original separator runes, so the length
		// check covers them too.
		if s.end-current.start > maxChunkSize {
			chunks = append(chunks, string(runes[current.start:current.end]))
			current = s
			continue
		}
		current.end = s.end
	}
	chunks = append(chunks, string(runes[current.start:current.end]))
	return chunks
}

// ChunkFile chunks one file's text and wraps the segments in
// ContentChunk records carrying position metadata.
func ChunkFile(sourcePath, text string, maxChunkSize int) []ContentChunk {
	parts := Chunk(text, maxChunkSize)
	out := make([]ContentChunk, len(parts))
	for i, p := range parts {
		out[i] = ContentChunk{
			Text:           p,
			Index:          i,
			TotalChunks:    len(parts),
			SourceFilePath: sourcePath,
		}
	}
	return out
}

// span marks one sentence as a half-open rune range, trimmed of
// surrounding whitespace. Keeping indices instead of strings lets the
// packer cut chunks out of the original text verbatim.
type span struct {
	start, end int
}

// sentenceSpans cuts runes into sentence spans: a run of characters
// ending with '.', '!' or '?' followed by whitespace (or end of
// input). Text without terminal punctuation falls back to line
// boundaries, and a trailing fragment is kept as its own sentence.
func sentenceSpans(runes []rune) []span {
	var spans []span
	start := 0

	flush := func(end int) {
		s, e := start, end
		for s < e && unicode.IsSpace(runes[s]) {
			s++
		}
		for e > s && unicode.IsSpace(runes[e-1]) {
			e--
		}
		if s < e {
			spans = append(spans, span{start: s, end: e})
		}
		start = end
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				flush(i + 1)
			}
			continue
		}
		if r == '\n' {
			flush(i + 1)
		}
	}
	flush(len(runes))
	return spans
}
