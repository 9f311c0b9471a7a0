package binder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// DefaultMaxJSONSize caps JSON request bodies at 1MB.
const DefaultMaxJSONSize = 1 << 20

// Binder populates v from an incoming request. Binders are composable:
// each one reads its own source (body, query, path) and leaves fields it
// does not know about untouched.
type Binder func(r *http.Request, v any) error

// JSON binds an application/json body into v. Unknown fields are rejected
// and trailing data after the JSON value is an error.
func JSON() Binder {
	return func(r *http.Request, v any) error {
		if _, err := requireMediaType(r, "application/json"); err != nil {
			return err
		}

		dec := json.NewDecoder(io.LimitReader(r.Body, DefaultMaxJSONSize+1))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: empty body", ErrInvalidJSON)
			}
			return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: unexpected data after JSON value", ErrInvalidJSON)
		}
		return nil
	}
}

// Form binds application/x-www-form-urlencoded bodies into v using
// `form` struct tags.
func Form() Binder {
	return func(r *http.Request, v any) error {
		if _, err := requireMediaType(r, "application/x-www-form-urlencoded"); err != nil {
			return err
		}
		if err := r.ParseForm(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidForm, err)
		}
		return bindToStruct(v, "form", r.PostForm, ErrInvalidForm)
	}
}

// Query binds URL query parameters into v using `query` struct tags.
func Query() Binder {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "query", r.URL.Query(), ErrInvalidQuery)
	}
}

// Path binds router path parameters into v using `path` struct tags.
// The extractor adapts the router in use, e.g. chi.URLParam.
func Path(extractor func(r *http.Request, name string) string) Binder {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: nil extractor", ErrInvalidPath)
		}
		rv, rt, err := structTarget(v, ErrInvalidPath)
		if err != nil {
			return err
		}
		for i := 0; i < rv.NumField(); i++ {
			field := rv.Field(i)
			if !field.CanSet() {
				continue
			}
			name, skip := fieldName(rt.Field(i), "path")
			if skip {
				continue
			}
			raw := extractor(r, name)
			if raw == "" {
				continue
			}
			if err := setField(field, rt.Field(i).Type, []string{raw}); err != nil {
				return fmt.Errorf("%w: field %s: %v", ErrInvalidPath, rt.Field(i).Name, err)
			}
		}
		return nil
	}
}

func requireMediaType(r *http.Request, want string) (string, error) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return "", fmt.Errorf("%w: expected %s", ErrMissingContentType, want)
	}
	mediaType := ct
	if idx := strings.Index(ct, ";"); idx != -1 {
		mediaType = strings.TrimSpace(ct[:idx])
	}
	if mediaType != want {
		return "", fmt.Errorf("%w: got %s, expected %s", ErrUnsupportedMediaType, mediaType, want)
	}
	return mediaType, nil
}

func structTarget(v any, bindErr error) (reflect.Value, reflect.Type, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, nil, fmt.Errorf("%w: target must be a non-nil pointer", bindErr)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, nil, fmt.Errorf("%w: target must be a pointer to struct", bindErr)
	}
	return rv, rv.Type(), nil
}

func bindToStruct(v any, tag string, values map[string][]string, bindErr error) error {
	rv, rt, err := structTarget(v, bindErr)
	if err != nil {
		return err
	}
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		if !field.CanSet() {
			continue
		}
		name, skip := fieldName(rt.Field(i), tag)
		if skip {
			continue
		}
		vals, ok := values[name]
		if !ok || len(vals) == 0 {
			continue
		}
		if err := setField(field, rt.Field(i).Type, vals); err != nil {
			return fmt.Errorf("%w: field %s: %v", bindErr, rt.Field(i).Name, err)
		}
	}
	return nil
}

func fieldName(f reflect.StructField, tag string) (string, bool) {
	t := f.Tag.Get(tag)
	switch t {
	case "":
		return strings.ToLower(f.Name), false
	case "-":
		return "", true
	}
	if idx := strings.Index(t, ","); idx != -1 {
		t = t[:idx]
	}
	return t, false
}

func setField(field reflect.Value, ft reflect.Type, values []string) error {
	if ft.Kind() == reflect.Pointer {
		if field.IsNil() {
			field.Set(reflect.New(ft.Elem()))
		}
		return setField(field.Elem(), ft.Elem(), values)
	}
	if ft.Kind() == reflect.Slice {
		slice := reflect.MakeSlice(ft, len(values), len(values))
		for i, raw := range values {
			if err := setField(slice.Index(i), ft.Elem(), []string{raw}); err != nil {
				return err
			}
		}
		field.Set(slice)
		return nil
	}

	raw := values[0]
	switch ft.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, ft.Bits())
		if err != nil {
			return fmt.Errorf("invalid int value %q", raw)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, ft.Bits())
		if err != nil {
			return fmt.Errorf("invalid uint value %q", raw)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(raw, ft.Bits())
		if err != nil {
			return fmt.Errorf("invalid float value %q", raw)
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			switch strings.ToLower(raw) {
			case "on", "yes":
				b = true
			case "off", "no", "":
				b = false
			default:
				return fmt.Errorf("invalid bool value %q", raw)
			}
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type %s", ft.Kind())
	}
	return nil
}
