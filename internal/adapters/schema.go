package adapters

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/crapthings/storyboard/internal/catalog"
	"github.com/crapthings/storyboard/internal/tasks"
)

type ruleKind int

const (
	ruleRequired ruleKind = iota
	ruleOptionalTyped
	ruleArrayMinItems
)

type rule struct {
	kind     ruleKind
	typ      catalog.FieldType
	minItems int
}

// compileField expands a schema field into the rules that check it, in the
// order they must be applied.
func compileField(f catalog.Field) []rule {
	var rules []rule
	if f.Required {
		rules = append(rules, rule{kind: ruleRequired, typ: f.Type})
	} else {
		rules = append(rules, rule{kind: ruleOptionalTyped, typ: f.Type})
	}
	if f.Type == catalog.TypeArray && f.MinItems > 0 {
		rules = append(rules, rule{kind: ruleArrayMinItems, minItems: f.MinItems})
	}
	return rules
}

// ValidateParams checks params against every schema field. Params the schema
// does not name are left alone.
func ValidateParams(schema map[string]catalog.Field, params map[string]any) error {
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value, present := params[name]
		if present && value == nil {
			present = false
		}
		for _, r := range compileField(schema[name]) {
			if err := r.check(name, value, present); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r rule) check(name string, value any, present bool) error {
	switch r.kind {
	case ruleRequired:
		if !present {
			return fmt.Errorf("%w: missing required field %s", tasks.ErrInvalidInput, name)
		}
		return checkType(name, r.typ, value)
	case ruleOptionalTyped:
		if !present {
			return nil
		}
		return checkType(name, r.typ, value)
	case ruleArrayMinItems:
		if !present {
			return nil
		}
		if n := reflect.ValueOf(value).Len(); n < r.minItems {
			return fmt.Errorf("%w: field %s needs at least %d items, got %d", tasks.ErrInvalidInput, name, r.minItems, n)
		}
		return nil
	}
	return fmt.Errorf("unknown rule kind %d", r.kind)
}

func checkType(name string, typ catalog.FieldType, value any) error {
	if !hasType(typ, value) {
		return fmt.Errorf("%w: field %s must be %s", tasks.ErrInvalidInput, name, typ)
	}
	return nil
}

func hasType(typ catalog.FieldType, value any) bool {
	v := reflect.ValueOf(value)
	switch typ {
	case catalog.TypeString:
		return v.Kind() == reflect.String
	case catalog.TypeArray:
		return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
	case catalog.TypeNumber:
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return true
		}
		return false
	case catalog.TypeBoolean:
		return v.Kind() == reflect.Bool
	case catalog.TypeObject:
		return v.Kind() == reflect.Map
	}
	return false
}
