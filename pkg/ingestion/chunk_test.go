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

import (
	"strings"
	"testing"
)

func TestChunkRespectsSentenceBoundaries(t *testing.T) {
	text := "First sentence here. Second sentence here. Third one."
	chunks := Chunk(text, 25)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %q", len(chunks), chunks)
	}
	for i, c := range chunks {
		if len(c) > 25 {
			t.Errorf("chunk %d exceeds limit: %d chars", i, len(c))
		}
		if strings.TrimSpace(c) == "" {
			t.Errorf("chunk %d is blank", i)
		}
	}
	if chunks[0] != "First sentence here." {
		t.Errorf("unexpected first chunk: %q", chunks[0])
	}
}

func TestChunkPacksSentencesUpToLimit(t *testing.T) {
	text := "One. Two. Three. Four."
	chunks := Chunk(text, 10)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != "One. Two." {
		t.Errorf("unexpected first chunk: %q", chunks[0])
	}
	// "Three. Four." would be 12 chars, over the limit, so the packer
	// must split them.
	if chunks[1] != "Three." || chunks[2] != "Four." {
		t.Errorf("unexpected tail chunks: %q", chunks[1:])
	}
}

func TestChunkOversizedSentenceStandsAlone(t *testing.T) {
	long := strings.Repeat("x", 50)
	text := "Short. " + long + ". Tail."
	chunks := Chunk(text, 20)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[1]) <= 20 {
		t.Errorf("oversized sentence should be its own chunk, got %q", chunks[1])
	}
}

func TestChunkEmptyInput(t *testing.T) {
	if got := Chunk("", 100); len(got) != 0 {
		t.Errorf("expected no chunks for empty input, got %q", got)
	}
	if got := Chunk("   \n\n  ", 100); len(got) != 0 {
		t.Errorf("expected no chunks for whitespace input, got %q", got)
	}
}

func TestChunkPreservesAllText(t *testing.T) {
	text := "Alpha beta gamma. Delta epsilon.\nZeta eta theta. Iota!"
	chunks := Chunk(text, 30)

	// Every chunk must be a verbatim slice of the input, whitespace
	// included; only the cuts between chunks may drop whitespace.
	for i, c := range chunks {
		if !strings.Contains(text, c) {
			t.Errorf("chunk %d is not verbatim input text: %q", i, c)
		}
	}
	joined := strings.Join(chunks, " ")
	for _, word := range strings.Fields(text) {
		if !strings.Contains(joined, strings.TrimSpace(word)) {
			t.Errorf("word %q lost during chunking", word)
		}
	}
}

func TestChunkKeepsInterSentenceWhitespace(t *testing.T) {
	got := Chunk("First paragraph.\n\nSecond paragraph.", 1000)
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %q", len(got), got)
	}
	if got[0] != "First paragraph.\n\nSecond paragraph." {
		t.Errorf("blank line between sentences not preserved: %q", got[0])
	}

	got = Chunk("package main\nfunc main() {}\n", 1000)
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %q", len(got), got)
	}
	if got[0] != "package main\nfunc main() {}" {
		t.Errorf("newlines inside chunk not preserved: %q", got[0])
	}
}

func TestChunkFileMetadata(t *testing.T) {
	text := "First sentence here. Second sentence goes on a bit longer."
	chunks := ChunkFile("src/app.py", text, 30)

	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.TotalChunks != len(chunks) {
			t.Errorf("chunk %d reports total %d, want %d", i, c.TotalChunks, len(chunks))
		}
		if c.SourceFilePath != "src/app.py" {
			t.Errorf("chunk %d has path %q", i, c.SourceFilePath)
		}
	}
}
