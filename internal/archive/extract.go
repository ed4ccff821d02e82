package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// structuredEntryName is the inner document the extraction service writes
// into the result archive.
const structuredEntryName = "structuredData.json"

// ErrMissingStructuredData indicates the result archive has no
// structuredData.json entry at any depth.
var ErrMissingStructuredData = errors.New("structuredData.json not found in archive")

// structuredSchema constrains the structured-content document to an ordered
// elements sequence whose entries may carry a textual field.
const structuredSchema = `{
  "type": "object",
  "required": ["elements"],
  "properties": {
    "elements": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "Text": {"type": "string"}
        }
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("structuredData.schema.json", structuredSchema)

type structuredDocument struct {
	Elements []struct {
		Text string `json:"Text"`
	} `json:"elements"`
}

// ExtractStructuredText unpacks the result archive, locates the structured
// content document, and flattens its ordered elements into plain text with
// single spaces between fragments.
func ExtractStructuredText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open result archive: %w", err)
	}

	entry := findStructuredEntry(zr)
	if entry == nil {
		return "", ErrMissingStructuredData
	}

	rc, err := entry.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", entry.Name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", entry.Name, err)
	}

	if err := validateStructured(raw); err != nil {
		return "", fmt.Errorf("structured content invalid: %w", err)
	}

	var doc structuredDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("parse structured content: %w", err)
	}

	var sb strings.Builder
	for _, el := range doc.Elements {
		text := strings.TrimSpace(el.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
	}
	return strings.TrimSpace(sb.String()), nil
}

func findStructuredEntry(zr *zip.Reader) *zip.File {
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == structuredEntryName || strings.HasSuffix(name, "/"+structuredEntryName) {
			return f
		}
	}
	return nil
}

func validateStructured(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return compiledSchema.Validate(v)
}
