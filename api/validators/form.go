package validators

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

const maxFormMemory = 12 << 20

// DecodeForm fills the string, bool and integer fields of dest from the
// request form. A field's key is its form tag, then its json tag, then its
// name with a lower-case first letter. Checkbox fields are true when present.
func DecodeForm(r *http.Request, dest any) error {
	if err := parseForm(r); err != nil {
		return err
	}

	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return pkgerrors.New(pkgerrors.CodeInternal, "form destination must be a struct pointer")
	}
	v = v.Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		key := formKey(field)
		if key == "-" {
			continue
		}
		values, present := r.Form[key]
		target := v.Field(i)

		switch target.Kind() {
		case reflect.String:
			if present {
				target.SetString(values[0])
			}
		case reflect.Bool:
			target.SetBool(present && values[0] != "false" && values[0] != "off")
		case reflect.Int, reflect.Int64:
			if !present || strings.TrimSpace(values[0]) == "" {
				continue
			}
			n, err := strconv.ParseInt(strings.TrimSpace(values[0]), 10, 64)
			if err != nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "form field must be numeric").
					WithDetails(map[string]string{key: "must be a whole number"})
			}
			target.SetInt(n)
		}
	}
	return nil
}

func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if r.MultipartForm != nil {
			return nil
		}
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form")
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form")
	}
	return nil
}

func formKey(f reflect.StructField) string {
	if tag := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]; tag != "" {
		return tag
	}
	if tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]; tag != "" {
		return tag
	}
	return strings.ToLower(f.Name[:1]) + f.Name[1:]
}
