package config

import (
	"bufio"
	"fmt"
	"os"
	"reflect"
	"strings"
)

// iniTarget is the struct that key = value lines currently write into.
type iniTarget struct {
	value reflect.Value
	keys  map[string]int
}

func readINI(path string, fields []*field, strict bool) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	top := make(map[string]*field)
	for _, f := range fields {
		if f.section != "" || f.sections != "" {
			continue
		}
		top[f.name] = f
		for _, a := range f.aliases {
			top[a] = f
		}
	}

	var target *iniTarget
	scanner := bufio.NewScanner(file)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			target = openSection(strings.ToLower(strings.Trim(line, "[] ")), fields)
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if target != nil {
			idx, ok := target.keys[key]
			if !ok {
				idx, ok = target.keys[toKebabCase(key)]
			}
			if ok {
				if err := setValue(target.value.Field(idx), value); err != nil {
					return fmt.Errorf("error parsing '%s' at line %d: %w", key, lineNum, err)
				}
				continue
			}
		}

		f, ok := top[key]
		if !ok {
			if strict {
				return fmt.Errorf("unknown configuration key at line %d: %s", lineNum, key)
			}
			continue
		}
		if err := setValue(f.value, value); err != nil {
			return fmt.Errorf("error parsing '%s' at line %d: %w", key, lineNum, err)
		}
	}
	return scanner.Err()
}

// openSection resolves a [header] to the struct it fills. A "sections" field
// gets a fresh element appended for every matching header. Unknown headers
// return nil and their keys fall back to the top level.
func openSection(name string, fields []*field) *iniTarget {
	for _, f := range fields {
		if f.section != "" && f.section == name {
			return &iniTarget{value: f.value, keys: keysOf(f.value.Type())}
		}
	}
	for _, f := range fields {
		if f.sections == "" {
			continue
		}
		if name != f.sections && !strings.HasPrefix(name, f.sections+".") {
			continue
		}
		elem := f.value.Type().Elem()
		f.value.Set(reflect.Append(f.value, reflect.New(elem).Elem()))
		return &iniTarget{value: f.value.Index(f.value.Len() - 1), keys: keysOf(elem)}
	}
	return nil
}
