// Package intake turns a careers form submission into a validated
// application with its resume attached.
package intake

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/muhammadolammi/polypopcareers/internal/apperr"
)

// Form field names.
const (
	FieldName           = "name"
	FieldPhone          = "phone"
	FieldExperience     = "experience"
	FieldPosition       = "position"
	FieldSalary         = "salary"
	FieldExpectedSalary = "expected_salary"
	FieldFile           = "file"
)

// RequiredFields lists the text fields in the order they appear on the form.
var RequiredFields = []string{FieldName, FieldPhone, FieldExperience, FieldPosition, FieldSalary, FieldExpectedSalary}

// older revisions of the form posted the salaries as ctc/expected_ctc
var fieldAliases = map[string][]string{
	FieldSalary:         {"ctc"},
	FieldExpectedSalary: {"expected_ctc"},
}

const octetStream = "application/octet-stream"

// Submission is one completed careers form.
type Submission struct {
	Name           string
	Phone          string
	Experience     int
	Position       string
	Salary         int64
	ExpectedSalary int64
	Resume         *File
}

// Close releases the resume stream.
func (s *Submission) Close() error {
	if s == nil || s.Resume == nil {
		return nil
	}
	return s.Resume.Close()
}

// File is the uploaded resume. Content is positioned at the start.
type File struct {
	Filename    string
	ContentType string
	Size        int64
	Content     multipart.File
}

func (f *File) Close() error {
	if f.Content == nil {
		return nil
	}
	return f.Content.Close()
}

// Options bound what Parse accepts.
type Options struct {
	MaxFileBytes int64
}

// FromRequest parses r's form body, keeping at most maxMemory bytes of file
// parts in memory, and validates it with Parse.
func FromRequest(r *http.Request, maxMemory int64, opts Options) (*Submission, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fileTooLarge(opts.MaxFileBytes)
		}
		return nil, apperr.Wrap(err, apperr.KindInvalidField, "the form could not be read")
	}
	var files map[string][]*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File
	}
	return Parse(r.PostForm, files, opts)
}

// Parse validates the form values and opens the resume. Missing fields are
// reported first, then malformed numbers, then problems with the file.
func Parse(values url.Values, files map[string][]*multipart.FileHeader, opts Options) (*Submission, error) {
	fields := make(map[string]string, len(RequiredFields))
	var missing []string
	for _, name := range RequiredFields {
		v := lookup(values, name)
		if v == "" {
			missing = append(missing, name)
			continue
		}
		fields[name] = v
	}
	if len(missing) > 0 {
		return nil, apperr.MissingFields(missing...)
	}

	sub := &Submission{
		Name:     fields[FieldName],
		Phone:    fields[FieldPhone],
		Position: fields[FieldPosition],
	}
	var invalid []string
	if n, ok := parseWhole(fields[FieldExperience]); ok && n <= 1<<31-1 {
		sub.Experience = int(n)
	} else {
		invalid = append(invalid, FieldExperience)
	}
	if n, ok := parseWhole(fields[FieldSalary]); ok {
		sub.Salary = n
	} else {
		invalid = append(invalid, FieldSalary)
	}
	if n, ok := parseWhole(fields[FieldExpectedSalary]); ok {
		sub.ExpectedSalary = n
	} else {
		invalid = append(invalid, FieldExpectedSalary)
	}
	if len(invalid) > 0 {
		return nil, apperr.InvalidFields(invalid...)
	}

	// a file input left empty arrives as a plain value with no filename
	_, emptyInput := values[FieldFile]
	resume, err := openResume(files[FieldFile], emptyInput, opts)
	if err != nil {
		return nil, err
	}
	sub.Resume = resume
	return sub, nil
}

func openResume(headers []*multipart.FileHeader, emptyInput bool, opts Options) (*File, error) {
	if len(headers) == 0 || headers[0] == nil {
		if emptyInput {
			return nil, apperr.MissingFile("No selected file")
		}
		return nil, apperr.MissingFile("No file part")
	}
	fh := headers[0]
	if strings.TrimSpace(fh.Filename) == "" {
		return nil, apperr.MissingFile("No selected file")
	}
	if opts.MaxFileBytes > 0 && fh.Size > opts.MaxFileBytes {
		return nil, fileTooLarge(opts.MaxFileBytes)
	}

	content, err := fh.Open()
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindIO, "could not read the uploaded file")
	}
	contentType, err := resolveContentType(content, fh.Header.Get("Content-Type"))
	if err != nil {
		content.Close()
		return nil, apperr.Wrap(err, apperr.KindIO, "could not read the uploaded file")
	}
	return &File{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Content:     content,
	}, nil
}

// resolveContentType keeps a meaningful declared type and otherwise sniffs
// the leading bytes, rewinding the stream afterwards.
func resolveContentType(f multipart.File, declared string) (string, error) {
	declared = strings.TrimSpace(declared)
	if declared != "" && !strings.EqualFold(declared, octetStream) {
		return declared, nil
	}
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}
	return mt.String(), nil
}

func lookup(values url.Values, name string) string {
	if v := strings.TrimSpace(values.Get(name)); v != "" {
		return v
	}
	for _, alias := range fieldAliases[name] {
		if v := strings.TrimSpace(values.Get(alias)); v != "" {
			return v
		}
	}
	return ""
}

// parseWhole accepts non-negative integers, tolerating thousands separators.
func parseWhole(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func fileTooLarge(limit int64) *apperr.Error {
	msg := "the resume is too large"
	if limit > 0 {
		msg = fmt.Sprintf("the resume must be %s or smaller", humanize.IBytes(uint64(limit)))
	}
	return apperr.New(apperr.KindFileTooLarge, msg)
}
