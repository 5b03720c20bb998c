package validation

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/username/capfolio/backend/src/logger"
)

// allowedClientContentTypes lists the Content-Type values a browser may
// declare for a CSV upload. Spreadsheet formats like .xlsx are rejected
// outright; this endpoint parses text.
var allowedClientContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true, // older Excel installs label CSVs this way
	"text/plain":               true,
	"application/octet-stream": true,
}

// allowedDetectedTypes lists what http.DetectContentType may report for the
// first bytes of an upload we are willing to parse. octet-stream is allowed
// because sniffing cannot prove a CSV; the parser's required-column gate is
// the real filter behind it.
var allowedDetectedTypes = map[string]bool{
	"text/plain":               true,
	"text/csv":                 true,
	"application/csv":          true,
	"application/octet-stream": true,
}

// ValidateClientContentType checks the client-declared Content-Type of an
// upload against the CSV allow-list.
func ValidateClientContentType(contentType string) error {
	if !allowedClientContentTypes[strings.ToLower(contentType)] {
		logger.L.Warn("Rejected client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("client-declared file type '%s' is not allowed for CSV upload", contentType)
	}
	return nil
}

// ValidateFileContentByMagicBytes sniffs the leading bytes of the upload and
// rejects anything that is not text-like, catching executables and binary
// documents renamed to .csv. The reader is rewound before returning so the
// parser that runs next sees the whole file.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading upload for content sniffing: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding upload after content sniffing: %w", err)
	}

	detected := http.DetectContentType(buffer[:n])
	detected = strings.ToLower(strings.Split(detected, ";")[0]) // drop "; charset=..."

	if !allowedDetectedTypes[detected] {
		logger.L.Warn("Rejected upload by content sniffing", "detectedContentType", detected)
		return detected, fmt.Errorf("detected file content type '%s' is not consistent with a CSV file", detected)
	}
	return detected, nil
}
