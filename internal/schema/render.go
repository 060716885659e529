package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gookit/color"
)

// RenderOptions tunes text renderers.
type RenderOptions struct {
	Color bool // colour type names in the tree format
}

type renderFunc func(s *StructNode, opts RenderOptions) ([]byte, error)

var renderers = map[string]renderFunc{
	"tree":    renderTree,
	"ddl":     renderDDL,
	"json":    renderJSON,
	"pyspark": renderPySpark,
}

// Formats lists the supported render formats.
func Formats() []string {
	names := make([]string, 0, len(renderers))
	for name := range renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render writes s in the named format: tree, ddl, json or pyspark.
func Render(format string, s *StructNode, opts RenderOptions) ([]byte, error) {
	fn, ok := renderers[format]
	if !ok {
		return nil, fmt.Errorf("unknown schema format %q (supported: %s)", format, strings.Join(Formats(), ", "))
	}
	if s == nil {
		return nil, fmt.Errorf("schema is nil")
	}
	return fn(s, opts)
}

// typeName is the Spark typeName of a node.
func typeName(n Node) string {
	switch n.Kind() {
	case KindStruct:
		return "struct"
	case KindArray:
		return "array"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "long"
	case KindFloat:
		return "double"
	default:
		return "string"
	}
}

// renderTree mirrors Spark's printTreeString.
func renderTree(s *StructNode, opts RenderOptions) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("root\n")
	writeStructTree(&sb, s, " |", opts)
	return []byte(sb.String()), nil
}

func writeStructTree(sb *strings.Builder, s *StructNode, prefix string, opts RenderOptions) {
	for _, f := range s.Fields {
		fmt.Fprintf(sb, "%s-- %s: %s (nullable = %t)\n", prefix, f.Name, paint(typeName(f.Type), opts), f.Nullable)
		writeChildTree(sb, f.Type, prefix+"    |", opts)
	}
}

func writeChildTree(sb *strings.Builder, n Node, prefix string, opts RenderOptions) {
	switch t := n.(type) {
	case *StructNode:
		writeStructTree(sb, t, prefix, opts)
	case *ArrayNode:
		fmt.Fprintf(sb, "%s-- element: %s (containsNull = %t)\n", prefix, paint(typeName(t.Element), opts), t.ContainsNull)
		writeChildTree(sb, t.Element, prefix+"    |", opts)
	}
}

func paint(name string, opts RenderOptions) string {
	if !opts.Color {
		return name
	}
	return color.Cyan.Sprint(name)
}

// renderDDL writes a Spark DDL column list.
func renderDDL(s *StructNode, _ RenderOptions) ([]byte, error) {
	cols := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = quoteDDL(f.Name) + " " + ddlType(f.Type)
	}
	return []byte(strings.Join(cols, ", ")), nil
}

func ddlType(n Node) string {
	switch t := n.(type) {
	case *StructNode:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = quoteDDL(f.Name) + ": " + ddlType(f.Type)
		}
		return "STRUCT<" + strings.Join(parts, ", ") + ">"
	case *ArrayNode:
		return "ARRAY<" + ddlType(t.Element) + ">"
	default:
		switch n.Kind() {
		case KindBoolean:
			return "BOOLEAN"
		case KindInteger:
			return "BIGINT"
		case KindFloat:
			return "DOUBLE"
		default:
			return "STRING"
		}
	}
}

func quoteDDL(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Spark/Delta JSON schema representation.
type jsonStruct struct {
	Type   string      `json:"type"`
	Fields []jsonField `json:"fields"`
}

type jsonField struct {
	Name     string         `json:"name"`
	Type     any            `json:"type"`
	Nullable bool           `json:"nullable"`
	Metadata map[string]any `json:"metadata"`
}

type jsonArray struct {
	Type         string `json:"type"`
	ElementType  any    `json:"elementType"`
	ContainsNull bool   `json:"containsNull"`
}

func renderJSON(s *StructNode, _ RenderOptions) ([]byte, error) {
	return json.Marshal(jsonType(s))
}

func jsonType(n Node) any {
	switch t := n.(type) {
	case *StructNode:
		out := jsonStruct{Type: "struct", Fields: make([]jsonField, len(t.Fields))}
		for i, f := range t.Fields {
			out.Fields[i] = jsonField{
				Name:     f.Name,
				Type:     jsonType(f.Type),
				Nullable: f.Nullable,
				Metadata: map[string]any{},
			}
		}
		return out
	case *ArrayNode:
		return jsonArray{Type: "array", ElementType: jsonType(t.Element), ContainsNull: t.ContainsNull}
	default:
		return typeName(n)
	}
}

// renderPySpark writes a PySpark StructType expression.
func renderPySpark(s *StructNode, _ RenderOptions) ([]byte, error) {
	var sb strings.Builder
	writePySparkStruct(&sb, s, 0)
	sb.WriteString("\n")
	return []byte(sb.String()), nil
}

func writePySparkStruct(sb *strings.Builder, s *StructNode, indent int) {
	if len(s.Fields) == 0 {
		sb.WriteString("StructType([])")
		return
	}
	fieldIndent := strings.Repeat("    ", indent+1)
	sb.WriteString("StructType([\n")
	for _, f := range s.Fields {
		sb.WriteString(fieldIndent)
		fmt.Fprintf(sb, "StructField(%q, ", f.Name)
		writePySparkType(sb, f.Type, indent+1)
		fmt.Fprintf(sb, ", %s),\n", pyBool(f.Nullable))
	}
	sb.WriteString(strings.Repeat("    ", indent))
	sb.WriteString("])")
}

func writePySparkType(sb *strings.Builder, n Node, indent int) {
	switch t := n.(type) {
	case *StructNode:
		writePySparkStruct(sb, t, indent)
	case *ArrayNode:
		sb.WriteString("ArrayType(")
		writePySparkType(sb, t.Element, indent)
		fmt.Fprintf(sb, ", %s)", pyBool(t.ContainsNull))
	default:
		switch n.Kind() {
		case KindBoolean:
			sb.WriteString("BooleanType()")
		case KindInteger:
			sb.WriteString("LongType()")
		case KindFloat:
			sb.WriteString("DoubleType()")
		default:
			sb.WriteString("StringType()")
		}
	}
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
