package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxContentTypes    = "[Content_Types].xml"
	docxDefaultMainPart = "word/document.xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

type contentTypes struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// readDOCX returns the text of the main document part, one line per paragraph.
func readDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	part := mainDocumentPart(zr)
	f := findZipFile(zr, part)
	if f == nil {
		return "", fmt.Errorf("open docx: %s not found", part)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open docx part %s: %w", part, err)
	}
	defer rc.Close()
	return paragraphText(rc)
}

// mainDocumentPart resolves the main part from [Content_Types].xml, falling back
// to word/document.xml.
func mainDocumentPart(zr *zip.Reader) string {
	f := findZipFile(zr, docxContentTypes)
	if f == nil {
		return docxDefaultMainPart
	}
	rc, err := f.Open()
	if err != nil {
		return docxDefaultMainPart
	}
	defer rc.Close()
	var types contentTypes
	if err := xml.NewDecoder(rc).Decode(&types); err != nil {
		return docxDefaultMainPart
	}
	for _, o := range types.Overrides {
		if o.ContentType == docxMainContentType {
			return strings.TrimPrefix(o.PartName, "/")
		}
	}
	return docxDefaultMainPart
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// paragraphText walks WordprocessingML collecting <w:t> runs. Runs of one
// <w:p> are concatenated; tabs and breaks become spaces.
func paragraphText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse docx: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab", "br":
				current.WriteByte(' ')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if p := strings.TrimSpace(current.String()); p != "" {
					paragraphs = append(paragraphs, p)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if p := strings.TrimSpace(current.String()); p != "" {
		paragraphs = append(paragraphs, p)
	}
	return strings.Join(paragraphs, "\n"), nil
}
