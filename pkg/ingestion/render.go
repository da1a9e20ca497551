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

import "strings"

// sectionRule is the delimiter line framing each file section inside
// ContentText. The assembler relies on this exact format to cut the
// concatenated content back into per-file sections.
const sectionRule = "================================================"

// FileSectionHeader renders the header that prefixes one file's content
// inside ContentText.
func FileSectionHeader(path string) string {
	return sectionRule + "\nFile: " + path + "\n" + sectionRule + "\n"
}

// FileSection is one path/content pair recovered from ContentText.
type FileSection struct {
	Path    string
	Content string
}

// SplitSections cuts ContentText back into per-file sections. Content
// past the truncation marker stays attached to its section; callers
// that care strip the marker themselves. Unrecognized leading text is
// ignored.
func SplitSections(contentText string) []FileSection {
	var sections []FileSection
	marker := sectionRule + "\nFile: "
	parts := strings.Split(contentText, marker)
	for _, part := range parts[1:] {
		nl := strings.Index(part, "\n")
		if nl < 0 {
			continue
		}
		path := part[:nl]
		rest := part[nl+1:]
		rest = strings.TrimPrefix(rest, sectionRule+"\n")
		sections = append(sections, FileSection{
			Path:    path,
			Content: strings.TrimSuffix(rest, "\n\n"),
		})
	}
	return sections
}
