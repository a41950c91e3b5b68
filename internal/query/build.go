package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const indentUnit = "  "

// Variable is one lifted argument, declared as "$Name: Type!".
type Variable struct {
	Name  string
	Type  string
	Value any
}

// Query is a compiled GraphQL document with its variables in declaration order.
type Query struct {
	Text      string
	Variables []Variable
}

// Vars returns the variables as the map sent alongside the query.
func (q *Query) Vars() map[string]any {
	vars := make(map[string]any, len(q.Variables))
	for _, v := range q.Variables {
		vars[v.Name] = v.Value
	}
	return vars
}

// Build compiles sel into a query document. Arguments found under ArgsKey are
// lifted into variables named <field>_<arg> with dots replaced by underscores.
// Build is stateless and safe for concurrent use.
func Build(sel *Selection) (*Query, error) {
	if sel == nil || sel.Len() == 0 {
		return nil, errors.New("build query: empty selection")
	}

	b := &builder{seen: map[string]bool{}}
	var lines []string
	for pair := sel.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == ArgsKey {
			return nil, errors.New("build query: arguments are not allowed at the root")
		}
		fl, err := b.field(pair.Key, pair.Value, "")
		if err != nil {
			return nil, fmt.Errorf("build query: %w", err)
		}
		lines = append(lines, fl...)
	}

	decls := make([]string, 0, len(b.vars))
	for _, v := range b.vars {
		decls = append(decls, fmt.Sprintf("$%s: %s!", v.Name, v.Type))
	}

	var sb strings.Builder
	sb.WriteString("query ")
	if len(decls) > 0 {
		sb.WriteString("(")
		sb.WriteString(strings.Join(decls, ", "))
		sb.WriteString(") ")
	}
	sb.WriteString("{\n")
	sb.WriteString(strings.Join(lines, "\n"))
	sb.WriteString("\n}")

	return &Query{Text: sb.String(), Variables: b.vars}, nil
}

type builder struct {
	vars []Variable
	seen map[string]bool
}

func (b *builder) field(name string, value any, indent string) ([]string, error) {
	sub, ok := value.(*Selection)
	if !ok {
		return []string{indent + name}, nil
	}

	var args, children []string
	for pair := sub.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == ArgsKey {
			a, err := b.lift(name, pair.Value)
			if err != nil {
				return nil, err
			}
			args = append(args, a...)
			continue
		}
		fl, err := b.field(pair.Key, pair.Value, indent+indentUnit)
		if err != nil {
			return nil, err
		}
		children = append(children, fl...)
	}

	head := indent + name
	if len(args) > 0 {
		head += "(" + strings.Join(args, ", ") + ")"
	}
	if len(children) == 0 {
		return []string{head}, nil
	}
	out := make([]string, 0, len(children)+2)
	out = append(out, head+" {")
	out = append(out, children...)
	out = append(out, indent+"}")
	return out, nil
}

func (b *builder) lift(field string, raw any) ([]string, error) {
	argMap, ok := raw.(*Selection)
	if !ok {
		return nil, fmt.Errorf("%s.%s must be an object", field, ArgsKey)
	}
	args := make([]string, 0, argMap.Len())
	for pair := argMap.Oldest(); pair != nil; pair = pair.Next() {
		name := strings.ReplaceAll(field+"_"+pair.Key, ".", "_")
		typ, val, err := wireType(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("argument %s of %s: %w", pair.Key, field, err)
		}
		if b.seen[name] {
			return nil, fmt.Errorf("variable $%s declared twice", name)
		}
		b.seen[name] = true
		b.vars = append(b.vars, Variable{Name: name, Type: typ, Value: val})
		args = append(args, fmt.Sprintf("%s: $%s", pair.Key, name))
	}
	return args, nil
}

// wireType maps a scalar to its GraphQL type and normalizes json.Number values.
func wireType(v any) (string, any, error) {
	switch x := v.(type) {
	case bool:
		return "Boolean", x, nil
	case string:
		return "String", x, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return "Int", x, nil
	case float32, float64:
		return "Float", x, nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return "Int", n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return "", nil, fmt.Errorf("invalid number %q", x.String())
		}
		return "Float", f, nil
	case nil:
		return "", nil, errors.New("null values cannot be typed")
	default:
		return "", nil, fmt.Errorf("unsupported value type %T", v)
	}
}
