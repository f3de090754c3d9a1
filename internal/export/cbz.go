/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"io"
	"strings"
)

// CBZSink packages items as numbered PNG pages into a CBZ (ZIP) archive and adds a
// ComicInfo.xml manifest on Close for reader compatibility.
type CBZSink struct {
	Title  string
	Writer string

	zw    *zip.Writer
	buf   bytes.Buffer
	pages int
}

func NewCBZSink(w io.Writer, title string) *CBZSink {
	return &CBZSink{Title: title, zw: zip.NewWriter(w)}
}

func (s *CBZSink) Put(item Item, img image.Image) error {
	s.buf.Reset()
	if err := WritePNG(&s.buf, img); err != nil {
		return err
	}
	s.pages++
	name := fmt.Sprintf("%03d_%s", s.pages, FileName(item.Ordinal, "png"))
	if err := addZipFile(s.zw, name, s.buf.Bytes()); err != nil {
		s.pages--
		return fmt.Errorf("zip add image: %w", err)
	}
	return nil
}

// Close writes the manifest and finishes the archive. The underlying writer stays open.
func (s *CBZSink) Close() error {
	if err := addZipFile(s.zw, "ComicInfo.xml", []byte(s.comicInfo())); err != nil {
		return fmt.Errorf("zip add manifest: %w", err)
	}
	if err := s.zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (s *CBZSink) comicInfo() string {
	title := strings.TrimSpace(s.Title)
	if title == "" {
		title = "Scenes"
	}
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<ComicInfo xmlns:xsi=\"http://www.w3.org/2001/XMLSchema-instance\">\n")
	fmt.Fprintf(&b, "  <Series>%s</Series>\n", xmlEsc(title))
	fmt.Fprintf(&b, "  <Title>%s</Title>\n", xmlEsc(title))
	fmt.Fprintf(&b, "  <PageCount>%d</PageCount>\n", s.pages)
	if s.Writer != "" {
		fmt.Fprintf(&b, "  <Writer>%s</Writer>\n", xmlEsc(s.Writer))
	}
	b.WriteString("  <Manga>No</Manga>\n")
	b.WriteString("</ComicInfo>\n")
	return b.String()
}

func xmlEsc(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\"", "&quot;", "'", "&apos;")
	return r.Replace(s)
}
