package intake

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/muhammadolammi/polypopcareers/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upload struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func validFields() map[string]string {
	return map[string]string{
		"name":            "Jane Doe",
		"phone":           "08012345678",
		"experience":      "3",
		"position":        "Engineer",
		"salary":          "500000",
		"expected_salary": "700000",
	}
}

func multipartRequest(t *testing.T, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/careers", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func pdfUpload() upload {
	return upload{field: "file", filename: "resume.pdf", contentType: "application/pdf", data: []byte("%PDF-1.7\n%")}
}

func TestFromRequestValid(t *testing.T) {
	req := multipartRequest(t, validFields(), pdfUpload())

	sub, err := FromRequest(req, 1<<20, Options{MaxFileBytes: 1 << 20})
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, "Jane Doe", sub.Name)
	assert.Equal(t, "08012345678", sub.Phone)
	assert.Equal(t, 3, sub.Experience)
	assert.Equal(t, "Engineer", sub.Position)
	assert.Equal(t, int64(500000), sub.Salary)
	assert.Equal(t, int64(700000), sub.ExpectedSalary)

	require.NotNil(t, sub.Resume)
	assert.Equal(t, "resume.pdf", sub.Resume.Filename)
	assert.Equal(t, "application/pdf", sub.Resume.ContentType)
	assert.Equal(t, int64(10), sub.Resume.Size)
	data, err := io.ReadAll(sub.Resume.Content)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7\n%", string(data))
}

func TestMissingFieldsListedExactly(t *testing.T) {
	fields := validFields()
	delete(fields, "phone")
	fields["position"] = "   "
	delete(fields, "expected_salary")

	_, err := FromRequest(multipartRequest(t, fields, pdfUpload()), 1<<20, Options{})
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindMissingField, e.Kind)
	assert.Equal(t, []string{"phone", "position", "expected_salary"}, e.Fields)
	assert.Equal(t, http.StatusBadRequest, e.Status())
}

func TestMissingFieldsTakePrecedenceOverFile(t *testing.T) {
	_, err := FromRequest(multipartRequest(t, map[string]string{"name": "Jane"}), 1<<20, Options{})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindMissingField, e.Kind)
	assert.Equal(t, []string{"phone", "experience", "position", "salary", "expected_salary"}, e.Fields)
}

func TestCTCAliases(t *testing.T) {
	fields := validFields()
	delete(fields, "salary")
	delete(fields, "expected_salary")
	fields["ctc"] = "400,000"
	fields["expected_ctc"] = "650000"

	sub, err := FromRequest(multipartRequest(t, fields, pdfUpload()), 1<<20, Options{})
	require.NoError(t, err)
	defer sub.Close()
	assert.Equal(t, int64(400000), sub.Salary)
	assert.Equal(t, int64(650000), sub.ExpectedSalary)
}

func TestInvalidNumbers(t *testing.T) {
	fields := validFields()
	fields["experience"] = "three"
	fields["salary"] = "-5"

	_, err := FromRequest(multipartRequest(t, fields, pdfUpload()), 1<<20, Options{})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInvalidField, e.Kind)
	assert.Equal(t, []string{"experience", "salary"}, e.Fields)
}

func TestNoFilePart(t *testing.T) {
	_, err := FromRequest(multipartRequest(t, validFields()), 1<<20, Options{})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindMissingFile, e.Kind)
	assert.Equal(t, "No file part", e.Message)
}

func TestEmptyFilename(t *testing.T) {
	req := multipartRequest(t, validFields(), upload{field: "file", filename: "", data: nil})

	_, err := FromRequest(req, 1<<20, Options{})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindMissingFile, e.Kind)
	assert.Equal(t, "No selected file", e.Message)
	assert.Equal(t, http.StatusBadRequest, e.Status())
}

func TestFileTooLarge(t *testing.T) {
	big := upload{field: "file", filename: "resume.pdf", contentType: "application/pdf", data: bytes.Repeat([]byte("a"), 2048)}

	_, err := FromRequest(multipartRequest(t, validFields(), big), 1<<20, Options{MaxFileBytes: 1024})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindFileTooLarge, e.Kind)
	assert.Contains(t, e.Message, "1.0 KiB")
	assert.Equal(t, http.StatusRequestEntityTooLarge, e.Status())
}

func TestBodyLimitExceeded(t *testing.T) {
	big := upload{field: "file", filename: "resume.pdf", data: bytes.Repeat([]byte("a"), 4096)}
	req := multipartRequest(t, validFields(), big)
	req.Body = http.MaxBytesReader(httptest.NewRecorder(), req.Body, 512)

	_, err := FromRequest(req, 1<<20, Options{MaxFileBytes: 256})
	assert.True(t, apperr.Is(err, apperr.KindFileTooLarge), "got %v", err)
}

func TestContentTypeSniffedForOctetStream(t *testing.T) {
	f := upload{field: "file", filename: "resume.pdf", contentType: "application/octet-stream", data: []byte("%PDF-1.7\n%")}

	sub, err := FromRequest(multipartRequest(t, validFields(), f), 1<<20, Options{})
	require.NoError(t, err)
	defer sub.Close()
	assert.Equal(t, "application/pdf", sub.Resume.ContentType)

	data, err := io.ReadAll(sub.Resume.Content)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7\n%", string(data), "stream must be rewound after sniffing")
}

func TestURLEncodedFormHasNoFile(t *testing.T) {
	form := url.Values{}
	for k, v := range validFields() {
		form.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodPost, "/careers", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, err := FromRequest(req, 1<<20, Options{})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindMissingFile, e.Kind)
}

func TestSubmissionCloseNil(t *testing.T) {
	var s *Submission
	assert.NoError(t, s.Close())
	assert.NoError(t, (&Submission{}).Close())
}
