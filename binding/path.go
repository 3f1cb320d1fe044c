package binding

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ByLCY/vellum/schema"
)

var (
	pathLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Number", Pattern: `-?(?:\d+\.\d+|\d+)`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][=.]`},
	})

	pathParser = participle.MustBuild[Path](
		participle.Lexer(pathLexer),
	)
)

// Path is the parsed form of a binding data path such as
// "data.section_1.entry_date" or "attachments[file_type=photo]".
type Path struct {
	Segments []*Segment `parser:"@@ ( '.' @@ )*"`
}

// Segment is one dotted step, optionally carrying a single-predicate
// array filter. Multiple predicates and inequality operators are not part
// of the language and fail to parse.
type Segment struct {
	Name   string  `parser:"@Ident"`
	Filter *Filter `parser:"( '[' @@ ']' )?"`
}

// Filter keeps only array elements whose key equals the given value.
type Filter struct {
	Key   string      `parser:"@Ident '='"`
	Value FilterValue `parser:"@@"`
}

// FilterValue is a quoted string, a number, or a bare word. Bare words
// true/false compare as booleans.
type FilterValue struct {
	String *StringLiteral `parser:"  @String"`
	Number *float64       `parser:"| @Number"`
	Ident  *string        `parser:"| @Ident"`
}

// Get returns the comparison value with its natural Go type.
func (v FilterValue) Get() any {
	switch {
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Ident != nil:
		switch *v.Ident {
		case "true":
			return true
		case "false":
			return false
		default:
			return *v.Ident
		}
	default:
		return nil
	}
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// ParsePath parses a binding path string.
func ParsePath(input string) (*Path, error) {
	p, err := pathParser.ParseString("", strings.TrimSpace(input))
	if err != nil {
		return nil, fmt.Errorf("绑定路径 %q 非法: %w", input, err)
	}
	return p, nil
}

// ValidateRules 在渲染前检查 schema 中全部 source 路径与 show_if 字段的语法，
// 把「过滤器只支持单个 key=value 等值谓词」这条约束前移到校验阶段，
// 而不是等到解析失败时静默按 null 处理。
func ValidateRules(s *schema.Schema) error {
	if s == nil {
		return nil
	}
	var problems []string
	for i, sec := range s.Sections {
		if sec.Binding.Kind == schema.BindingSourcePath {
			if _, err := ParsePath(sec.Binding.Source); err != nil {
				problems = append(problems, fmt.Sprintf("sections[%d]: %v", i, err))
			}
		}
		if sec.ShowIf != nil && sec.ShowIf.Field != "" {
			if _, err := ParsePath(sec.ShowIf.Field); err != nil {
				problems = append(problems, fmt.Sprintf("sections[%d]: show_if %v", i, err))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("绑定规则校验失败: %s", strings.Join(problems, "; "))
	}
	return nil
}
