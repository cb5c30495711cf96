package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
)

// Multipart is a form body sent as multipart/form-data. Any other request body
// is sent as JSON.
type Multipart struct {
	fields []formField
	files  []FilePart
}

type formField struct {
	name  string
	value string
}

// FilePart is a file attached to a multipart body
type FilePart struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

// Add appends a text field
func (m *Multipart) Add(name, value string) {
	m.fields = append(m.fields, formField{name: name, value: value})
}

// AddFile appends a file part
func (m *Multipart) AddFile(f FilePart) {
	m.files = append(m.files, f)
}

// encode writes the form and returns it with its boundary content type
func (m *Multipart) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, f := range m.fields {
		if err := writer.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	for _, f := range m.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.FileName))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", f.Field, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("write part %s: %w", f.Field, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// encodeBody serializes body once so the request can be replayed after a
// refresh. A nil body sends nothing.
func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Multipart:
		return b.encode()
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return data, "application/json", nil
	}
}
