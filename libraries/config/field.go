package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

type field struct {
	value    reflect.Value
	name     string
	aliases  []string
	help     string
	def      string
	required bool
	section  string
	sections string
}

func collectFields(v reflect.Value) []*field {
	t := v.Type()
	fields := make([]*field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		sf := t.Field(i)
		fields = append(fields, &field{
			value:    fv,
			name:     fieldName(sf),
			aliases:  splitList(sf.Tag.Get("alias")),
			help:     sf.Tag.Get("help"),
			def:      sf.Tag.Get("default"),
			required: sf.Tag.Get("required") == "true",
			section:  strings.ToLower(sf.Tag.Get("section")),
			sections: strings.ToLower(sf.Tag.Get("sections")),
		})
	}
	return fields
}

// flaggable reports whether the field is a scalar that can be set from the
// command line. Section structs are only read from the INI file.
func (f *field) flaggable() bool {
	if f.section != "" || f.sections != "" {
		return false
	}
	return checkKind(f.value.Type()) == nil
}

func (f *field) usage() string {
	if f.value.Kind() == reflect.Slice && !strings.Contains(strings.ToLower(f.help), "comma") {
		return f.help + " (comma-separated)"
	}
	return f.help
}

func fieldName(sf reflect.StructField) string {
	if name := sf.Tag.Get("name"); name != "" {
		return name
	}
	return toKebabCase(sf.Name)
}

// keysOf maps every name and alias of a struct type's fields to the field index.
func keysOf(t reflect.Type) map[string]int {
	keys := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		keys[fieldName(sf)] = i
		for _, a := range splitList(sf.Tag.Get("alias")) {
			keys[a] = i
		}
	}
	return keys
}

func checkKind(t reflect.Type) error {
	switch t.Kind() {
	case reflect.String, reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Bool:
		return nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			return nil
		}
	}
	return fmt.Errorf("unsupported type: %v", t.Kind())
}

// checkValue parses s for type t without storing it.
func checkValue(t reflect.Type, s string) error {
	return setValue(reflect.New(t).Elem(), s)
}

func setValue(v reflect.Value, s string) error {
	t := v.Type()
	switch t.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		v.SetBool(ParseBool(s))
	case reflect.Int:
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
	case reflect.Int64:
		if t == durationType {
			d, err := time.ParseDuration(s)
			if err != nil {
				return err
			}
			v.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint32:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Slice:
		if t.Elem().Kind() != reflect.String {
			return checkKind(t)
		}
		v.Set(reflect.ValueOf(splitList(s)))
	default:
		return checkKind(t)
	}
	return nil
}

// ParseBool accepts true/yes/1/on in any case. Everything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "on":
		return true
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func toKebabCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isZeroValue(v reflect.Value) bool {
	if v.Kind() == reflect.Slice {
		return v.Len() == 0
	}
	return v.IsZero()
}
