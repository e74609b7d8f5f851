// Package msgdef parses ROS interface definitions written in the .msg language.
package msgdef

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var (
	fieldNameRegexp    = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	constantNameRegexp = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	typeNameRegexp     = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9_]*/)?[A-Za-z][A-Za-z0-9_]*$`)
)

var primitives = map[string]bool{
	"bool": true, "byte": true, "char": true,
	"float32": true, "float64": true,
	"int8": true, "uint8": true, "int16": true, "uint16": true,
	"int32": true, "uint32": true, "int64": true, "uint64": true,
	"string": true, "wstring": true,
}

// IsPrimitive reports whether typ is a builtin type rather than another message.
func IsPrimitive(typ string) bool {
	return primitives[typ]
}

// Field is a single field of a message.
type Field struct {
	// Type is the element type with message types qualified by package, e.g. "geometry_msgs/Pose2D".
	Type        string
	Name        string
	// IsArray is set for sequences and fixed arrays. ArrayLen is the fixed length, or 0 for
	// sequences, which may be bounded by UpperBound.
	IsArray     bool
	ArrayLen    int
	UpperBound  int
	// StringBound is the maximum length of a bounded string.
	StringBound int
	// Default is the literal default value, if any.
	Default     string
}

// TypeString returns the field type as written in a normalized definition.
func (f Field) TypeString() string {
	s := f.Type
	if f.StringBound > 0 {
		s += "<=" + strconv.Itoa(f.StringBound)
	}
	switch {
	case !f.IsArray:
	case f.ArrayLen > 0:
		s += fmt.Sprintf("[%d]", f.ArrayLen)
	case f.UpperBound > 0:
		s += fmt.Sprintf("[<=%d]", f.UpperBound)
	default:
		s += "[]"
	}
	return s
}

// IsPrimitive reports whether the element type of the field is a builtin type.
func (f Field) IsPrimitive() bool {
	return IsPrimitive(f.Type)
}

func (f Field) String() string {
	return f.TypeString() + " " + f.Name
}

// Constant is a named constant declared in a message.
type Constant struct {
	Type  string
	Name  string
	Value string
}

func (c Constant) String() string {
	return fmt.Sprintf("%s %s=%s", c.Type, c.Name, c.Value)
}

// Spec is a parsed message definition.
type Spec struct {
	Package   string
	Name      string
	Fields    []Field
	Constants []Constant
}

// FullName returns the package qualified name of the message, e.g. "std_msgs/Header".
func (s *Spec) FullName() string {
	return s.Package + "/" + s.Name
}

// Field returns the field with the given name.
func (s *Spec) Field(name string) (Field, bool) {
	return lo.Find(s.Fields, func(f Field) bool { return f.Name == name })
}

// Dependencies returns the message types the spec refers to, in order of first use.
func (s *Spec) Dependencies() []string {
	return lo.Uniq(lo.FilterMap(s.Fields, func(f Field, _ int) (string, bool) {
		return f.Type, !f.IsPrimitive()
	}))
}

// Text renders the spec as a normalized definition without comments.
func (s *Spec) Text() string {
	var sb strings.Builder
	for _, c := range s.Constants {
		sb.WriteString(c.String())
		sb.WriteByte('\n')
	}
	for _, f := range s.Fields {
		sb.WriteString(f.String())
		if f.Default != "" {
			sb.WriteString(" " + f.Default)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// SplitTypeName splits "pkg/Name" or "pkg/msg/Name" into package and message name.
func SplitTypeName(fullName string) (string, string, error) {
	parts := strings.Split(fullName, "/")
	switch {
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return parts[0], parts[1], nil
	case len(parts) == 3 && parts[1] == "msg" && parts[0] != "" && parts[2] != "":
		return parts[0], parts[2], nil
	default:
		return "", "", errors.Errorf("invalid message type name %q", fullName)
	}
}

// Parse parses the definition text of the message named fullName.
func Parse(fullName, text string) (*Spec, error) {
	pkg, name, err := SplitTypeName(fullName)
	if err != nil {
		return nil, err
	}
	spec := &Spec{Package: pkg, Name: name}
	seen := map[string]bool{}

	scanner := bufio.NewScanner(strings.NewReader(text))
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		wrap := func(err error) error {
			return errors.Wrapf(err, "%s:%d", fullName, lineNum)
		}

		i := strings.IndexAny(line, " \t")
		if i < 0 {
			return nil, wrap(errors.Errorf("expected a type and a name in %q", line))
		}
		typeTok, rest := line[:i], strings.TrimSpace(line[i:])

		nameTok, value, isConst := strings.Cut(rest, "=")
		if nameTok = strings.TrimSpace(nameTok); isConst && !strings.ContainsAny(nameTok, " \t#") {
			c, err := parseConstant(typeTok, nameTok, value)
			if err != nil {
				return nil, wrap(err)
			}
			if seen[c.Name] {
				return nil, wrap(errors.Errorf("duplicate name %q", c.Name))
			}
			seen[c.Name] = true
			spec.Constants = append(spec.Constants, c)
			continue
		}

		rest, _, _ = strings.Cut(rest, "#")
		tokens := strings.Fields(rest)
		if len(tokens) == 0 {
			return nil, wrap(errors.Errorf("missing field name after %q", typeTok))
		}
		f, err := parseFieldType(pkg, typeTok)
		if err != nil {
			return nil, wrap(err)
		}
		f.Name = tokens[0]
		if !fieldNameRegexp.MatchString(f.Name) || strings.Contains(f.Name, "__") || strings.HasSuffix(f.Name, "_") {
			return nil, wrap(errors.Errorf("invalid field name %q", f.Name))
		}
		if seen[f.Name] {
			return nil, wrap(errors.Errorf("duplicate name %q", f.Name))
		}
		seen[f.Name] = true
		if len(tokens) > 1 {
			if !f.IsPrimitive() {
				return nil, wrap(errors.Errorf("field %q of message type %s cannot have a default", f.Name, f.Type))
			}
			f.Default = strings.Join(tokens[1:], " ")
		}
		spec.Fields = append(spec.Fields, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return spec, nil
}

func parseConstant(typ, name, value string) (Constant, error) {
	if !IsPrimitive(typ) {
		return Constant{}, errors.Errorf("constant %q must have a primitive type but has %q", name, typ)
	}
	if !constantNameRegexp.MatchString(name) {
		return Constant{}, errors.Errorf("invalid constant name %q", name)
	}
	// string constants run to the end of the line, comment characters included
	if typ != "string" && typ != "wstring" {
		value, _, _ = strings.Cut(value, "#")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return Constant{}, errors.Errorf("constant %q has no value", name)
	}
	return Constant{Type: typ, Name: name, Value: value}, nil
}

func parseFieldType(pkg, tok string) (Field, error) {
	var f Field
	base := tok
	if i := strings.IndexByte(tok, '['); i >= 0 {
		if !strings.HasSuffix(tok, "]") {
			return f, errors.Errorf("malformed array type %q", tok)
		}
		f.IsArray = true
		base = tok[:i]
		bound := tok[i+1 : len(tok)-1]
		switch {
		case bound == "":
		case strings.HasPrefix(bound, "<="):
			n, err := strconv.Atoi(bound[2:])
			if err != nil || n <= 0 {
				return f, errors.Errorf("invalid sequence bound in %q", tok)
			}
			f.UpperBound = n
		default:
			n, err := strconv.Atoi(bound)
			if err != nil || n <= 0 {
				return f, errors.Errorf("invalid array length in %q", tok)
			}
			f.ArrayLen = n
		}
	}
	if s, bound, ok := strings.Cut(base, "<="); ok {
		if s != "string" && s != "wstring" {
			return f, errors.Errorf("only strings may be bounded but got %q", tok)
		}
		n, err := strconv.Atoi(bound)
		if err != nil || n <= 0 {
			return f, errors.Errorf("invalid string bound in %q", tok)
		}
		base, f.StringBound = s, n
	}

	switch {
	case IsPrimitive(base):
	case base == "Header":
		base = "std_msgs/Header"
	case !typeNameRegexp.MatchString(base):
		return f, errors.Errorf("invalid type %q", tok)
	case !strings.Contains(base, "/"):
		base = pkg + "/" + base
	}
	f.Type = base
	return f, nil
}
