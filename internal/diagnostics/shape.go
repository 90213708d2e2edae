package diagnostics

import "strings"

// ShapeKind tags which raw layout a Shape was extracted from.
type ShapeKind int

const (
	ShapeChecker ShapeKind = iota + 1
	ShapeModuleBuild
	ShapeModuleResource
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeChecker:
		return "checker"
	case ShapeModuleBuild:
		return "module-build"
	case ShapeModuleResource:
		return "module-resource"
	default:
		return "none"
	}
}

// Shape holds the fields one raw layout supplies. Empty strings and nil
// positions mean the layout does not carry that field. Line and Column keep
// the raw 1-based values.
type Shape struct {
	Kind    ShapeKind
	File    string
	Message string
	Line    *int
	Column  *int
}

// Shapes returns every layout raw matches, in precedence order: checker,
// module build error, module resource.
func Shapes(raw RawError) []Shape {
	var shapes []Shape

	if raw.File != "" && (raw.Location != nil || raw.RawMessage != "") {
		s := Shape{Kind: ShapeChecker, File: raw.File, Message: raw.RawMessage}
		if raw.Location != nil {
			s.Line = raw.Location.Line
			s.Column = raw.Location.Character
		}
		shapes = append(shapes, s)
	}

	if raw.Error != nil && (raw.Error.Loc != nil || raw.Error.Message != "") {
		s := Shape{Kind: ShapeModuleBuild, Message: raw.Error.Message}
		if raw.Error.Loc != nil {
			s.Line = raw.Error.Loc.Line
			s.Column = raw.Error.Loc.Column
		}
		shapes = append(shapes, s)
	}

	if raw.Module != nil && raw.Module.Resource != "" {
		file := raw.Module.Resource
		shapes = append(shapes, Shape{
			Kind:    ShapeModuleResource,
			File:    file,
			Message: stripFilePrefix(raw.Message, file),
		})
	}

	return shapes
}

// stripFilePrefix removes a leading copy of file (and the separator after it)
// that some build tools prepend to the message.
func stripFilePrefix(message, file string) string {
	if file == "" || !strings.HasPrefix(message, file) {
		return message
	}
	return strings.TrimLeft(strings.TrimPrefix(message, file), " :\r\n\t")
}
