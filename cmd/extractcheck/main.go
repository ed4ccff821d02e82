// extractcheck inspects extraction inputs and outputs from the command line.
// Point it at a result archive to run the same validation and parsing the
// worker applies, or at a .pdf/.docx to parse the text locally and see what a
// reasonable extraction should contain.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cvextract-backend/internal/archive"
	"cvextract-backend/internal/localtext"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: extractcheck <file.zip|file.pdf|file.docx>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}

	var text string
	if strings.ToLower(filepath.Ext(path)) == ".zip" {
		text, err = checkArchive(data)
	} else {
		text, err = localtext.FromFile(path, data)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(1)
	}

	fmt.Printf("OK: %d characters\n---\n%s\n", len(text), text)
}

func checkArchive(data []byte) (string, error) {
	if !archive.IsValidArchive(data) {
		return "", fmt.Errorf("payload is not a zip archive (%d bytes)", len(data))
	}
	return archive.ExtractStructuredText(data)
}
