/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFSink lays items out as a storyboard: one landscape A4 page per item with the
// rendered frame on top and the transcript and annotation below.
// Text uses the built-in Helvetica with a cp1252 translation.
type PDFSink struct {
	out io.Writer
	pdf *gofpdf.Fpdf
	tr  func(string) string
	buf bytes.Buffer
}

func NewPDFSink(w io.Writer, title string) *PDFSink {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor("Scene Writer", false)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	return &PDFSink{out: w, pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (s *PDFSink) Put(item Item, img image.Image) error {
	s.buf.Reset()
	if err := WritePNG(&s.buf, img); err != nil {
		return err
	}
	pdf := s.pdf
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	left, top, right, _ := pdf.GetMargins()

	name := fmt.Sprintf("%s-%d", item.Source, item.Ordinal)
	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(s.buf.Bytes()))
	b := img.Bounds()
	w := pageW - left - right
	h := w * float64(b.Dy()) / float64(b.Dx())
	if h > 120 {
		w = w * 120 / h
		h = 120
	}
	pdf.ImageOptions(name, left, top, w, h, false, opt, 0, "")

	pdf.SetXY(left, top+h+4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 6, s.tr(fmt.Sprintf("Scene %d", item.Ordinal)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for i, l := range item.Scene.Dialogue {
		marker := "  "
		if i == item.Scene.Cursor {
			marker = "> "
		}
		speaker := strings.TrimSpace(l.Speaker)
		if speaker == "" {
			speaker = DefaultSpeaker
		}
		pdf.MultiCell(0, 5, s.tr(marker+speaker+": "+l.Text), "", "L", false)
	}
	if a := strings.TrimSpace(item.Scene.Annotation); a != "" {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 5, s.tr(a), "L", "L", false)
	}
	if pdf.Err() {
		return fmt.Errorf("pdf page: %w", pdf.Error())
	}
	return nil
}

// Close writes the document to the underlying writer.
func (s *PDFSink) Close() error {
	if err := s.pdf.Output(s.out); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
