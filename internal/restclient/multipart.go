package restclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"reflect"
	"slices"
	"strconv"
	"time"
)

// File is one attachment sent in a multipart body.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Multipart describes a form submission with attachments.
//
// Scalar fields are written as plain form values. Fields named in
// ArrayFields are JSON-encoded under their own name. The value stored under
// FileField must be a File, *File or []File; each file becomes its own part.
// Nil values are skipped entirely so partial updates only carry the fields
// that were set.
type Multipart struct {
	Fields      map[string]any
	ArrayFields []string
	FileField   string
}

// Encode renders the form. Field order is sorted so bodies are stable.
func (m *Multipart) Encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	keys := make([]string, 0, len(m.Fields))
	for k := range m.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		value, ok := deref(m.Fields[key])
		if !ok {
			continue
		}
		switch {
		case key == m.FileField && m.FileField != "":
			files, err := asFiles(value)
			if err != nil {
				return nil, "", fmt.Errorf("field %q: %w", key, err)
			}
			for _, f := range files {
				if err := writeFile(w, key, f); err != nil {
					return nil, "", err
				}
			}
		case slices.Contains(m.ArrayFields, key):
			data, err := json.Marshal(value)
			if err != nil {
				return nil, "", fmt.Errorf("field %q: %w", key, err)
			}
			if err := w.WriteField(key, string(data)); err != nil {
				return nil, "", err
			}
		default:
			text, err := formatScalar(value)
			if err != nil {
				return nil, "", fmt.Errorf("field %q: %w", key, err)
			}
			if err := w.WriteField(key, text); err != nil {
				return nil, "", err
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

// deref unwraps pointers and reports false for nil values.
func deref(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		if rv.IsNil() {
			return nil, false
		}
	}
	return rv.Interface(), true
}

func asFiles(v any) ([]File, error) {
	switch f := v.(type) {
	case File:
		return []File{f}, nil
	case []File:
		return f, nil
	case []*File:
		out := make([]File, 0, len(f))
		for _, p := range f {
			if p != nil {
				out = append(out, *p)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported file value %T", v)
	}
}

func writeFile(w *multipart.Writer, field string, f File) error {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(f.Data)
	return err
}

func formatScalar(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	// Anything structured that was not declared as an array field still
	// travels as JSON rather than Go's %v rendering.
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
