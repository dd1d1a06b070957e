// internal/intake/intaketest/pdf.go
package intaketest

import (
	"bytes"
	"fmt"
	"strings"
)

var pdfEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

// TextPDF builds an uncompressed PDF with one page per entry of pages. Each
// line is drawn with Helvetica on its own text line, top to bottom.
func TextPDF(pages ...[]string) []byte {
	return build(pages, func(lines []string) []byte {
		var stream strings.Builder
		stream.WriteString("BT\n/F1 11 Tf\n14 TL\n50 750 Td\n")
		for _, line := range lines {
			fmt.Fprintf(&stream, "(%s) Tj\nT*\n", pdfEscaper.Replace(line))
		}
		stream.WriteString("ET")
		return []byte(stream.String())
	}, "")
}

// CorruptPDF builds a structurally valid PDF whose single page declares a
// FlateDecode content stream that does not inflate.
func CorruptPDF() []byte {
	return build([][]string{{"unused"}}, func([]string) []byte {
		return []byte("this is not a zlib stream")
	}, " /Filter /FlateDecode")
}

func build(pages [][]string, content func([]string) []byte, streamDict string) []byte {
	var objects [][]byte
	add := func(body []byte) int {
		objects = append(objects, body)
		return len(objects)
	}

	add(nil) // catalog, filled in below
	pagesID := add(nil)
	fontID := add([]byte("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"))

	kids := make([]string, 0, len(pages))
	for _, lines := range pages {
		data := content(lines)
		streamID := add([]byte(fmt.Sprintf("<< /Length %d%s >>\nstream\n%s\nendstream", len(data), streamDict, data)))
		pageID := add([]byte(fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			pagesID, fontID, streamID)))
		kids = append(kids, fmt.Sprintf("%d 0 R", pageID))
	}
	objects[0] = []byte(fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesID))
	objects[pagesID-1] = []byte(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids)))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
