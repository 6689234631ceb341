// Copyright 2025 walteh LLC
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

package source

import "fmt"

// 📄 Descriptor identifies one source file and its relative placement for
// the destination. It is created at listing time and consumed read-only by
// the pipeline.
type Descriptor struct {
	// FileName is the bare name of the file
	FileName string
	// FullPath is the absolute path of the file in the source filesystem
	FullPath string
	// FileSizeBytes is the file size at listing time
	FileSizeBytes int64
	// IsDir reports whether the entry is a directory
	IsDir bool
	// RelativePath is the path under the listing root, prefixed with the
	// root's base name, e.g. listing /data/in yields "in/2024/a.csv"
	RelativePath string
	// HostURI identifies the filesystem the file lives on, e.g. "file:///"
	HostURI string
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%d bytes)", d.RelativePath, d.FileSizeBytes)
}

// 📊 BySize sorts descriptors by ascending file size, the order used to
// balance work across splits upstream.
type BySize []Descriptor

func (s BySize) Len() int           { return len(s) }
func (s BySize) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s BySize) Less(i, j int) bool { return s[i].FileSizeBytes < s[j].FileSizeBytes }
