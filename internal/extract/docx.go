package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	// paragraphEnd splits the OOXML body into paragraphs.
	paragraphEnd = regexp.MustCompile(`</w:p>`)
	// runText matches <w:t> text nodes with or without attributes
	// (e.g. <w:t xml:space="preserve">).
	runText = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

	xmlEntities = strings.NewReplacer(
		"&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'",
	)
)

// extractDOCX extracts text from .docx bytes. A DOCX is a zip whose main body
// lives in word/document.xml (occasionally renamed, e.g. word/document2.xml).
// Text runs within a paragraph are concatenated directly so mid-word run
// boundaries do not introduce spaces; paragraphs become separate lines.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("docx: %w", err)
	}
	body, err := readDocumentXML(zr)
	if err != nil {
		return "", err
	}

	var paragraphs []string
	for _, para := range paragraphEnd.Split(body, -1) {
		var b strings.Builder
		for _, m := range runText.FindAllStringSubmatch(para, -1) {
			b.WriteString(xmlEntities.Replace(m[1]))
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

// readDocumentXML returns the main document body. The canonical path is
// word/document.xml; some producers use a different name under word/, so fall
// back to the first word/document*.xml entry.
func readDocumentXML(zr *zip.Reader) (string, error) {
	var fallback *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			return readZipFile(f)
		}
		if fallback == nil && strings.HasPrefix(f.Name, "word/document") && strings.HasSuffix(f.Name, ".xml") {
			fallback = f
		}
	}
	if fallback != nil {
		return readZipFile(fallback)
	}
	return "", errors.New("docx: no document body found")
}

func readZipFile(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("docx: open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("docx: read %s: %w", f.Name, err)
	}
	return string(data), nil
}
