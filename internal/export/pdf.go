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
	"io"

	"github.com/jung-kurt/gofpdf"

	"gotshirtdesigner/internal/version"
)

// PrintDPI maps print-preset pixels to physical page size.
const PrintDPI = 300

// PDFOptions controls the single page print PDF.
type PDFOptions struct {
	Title string
	DPI   float64 // defaults to PrintDPI
}

// WritePDF places a rendered PNG on one page sized to the image at opt.DPI.
// Units are points; the image fills the page edge to edge.
func WritePDF(w io.Writer, pngData []byte, pxW, pxH int, opt PDFOptions) error {
	if len(pngData) == 0 || pxW <= 0 || pxH <= 0 {
		return fmt.Errorf("pdf: empty image")
	}
	dpi := opt.DPI
	if dpi <= 0 {
		dpi = PrintDPI
	}
	pageW := float64(pxW) / dpi * 72
	pageH := float64(pxH) / dpi * 72

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	title := opt.Title
	if title == "" {
		title = "T-Shirt Design"
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("gotshirtdesigner "+version.Version, true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	imgOpt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("design", imgOpt, bytes.NewReader(pngData))
	pdf.ImageOptions("design", 0, 0, pageW, pageH, false, imgOpt, 0, "")
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
