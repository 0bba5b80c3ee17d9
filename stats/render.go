package stats

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/zintix-labs/weightlab/errs"
	"gopkg.in/yaml.v3"
)

// Format 是報表的機器可讀輸出格式；FormatText 代表終端表格（StdOut）。
type Format uint8

const (
	FormatText Format = iota
	FormatJSON
	FormatYAML
)

// ParseFormat 解析 -out 參數："" / text、json、yaml（yml）。
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatText, errs.Warnf("unknown report format %q (json|yaml)", s)
	}
}

// DrawReportRender 定義輸出行為
type DrawReportRender interface {
	Write(w io.Writer, r *DrawReport) error
}

// RenderFunc 讓普通函式滿足 DrawReportRender
type RenderFunc func(w io.Writer, r *DrawReport) error

func (f RenderFunc) Write(w io.Writer, r *DrawReport) error { return f(w, r) }

var (
	JSONRender DrawReportRender = RenderFunc(func(w io.Writer, r *DrawReport) error { return encode(w, FormatJSON, r) })
	YAMLRender DrawReportRender = RenderFunc(func(w io.Writer, r *DrawReport) error { return encode(w, FormatYAML, r) })
)

// RenderDrain 以同樣規則輸出 DrainReport，FormatText 不適用。
func RenderDrain(w io.Writer, d *DrainReport, f Format) error {
	return encode(w, f, d)
}

func encode(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		return json.NewEncoder(w).Encode(v)
	case FormatYAML:
		var node yaml.Node
		if err := node.Encode(v); err != nil {
			return err
		}
		flowLeafSequences(&node)
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(&node)
	default:
		return errs.NewWarn("text format has no encoder, use StdOut")
	}
}

// flowLeafSequences 讓最內層的純量清單輸出成 [a, b]，巢狀結構維持 block。
// 回傳 n 是否為容器（mapping / sequence）。
func flowLeafSequences(n *yaml.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case yaml.DocumentNode, yaml.MappingNode:
		for _, c := range n.Content {
			flowLeafSequences(c)
		}
		return n.Kind == yaml.MappingNode
	case yaml.SequenceNode:
		leaf := true
		for _, c := range n.Content {
			if flowLeafSequences(c) {
				leaf = false
			}
		}
		if leaf {
			n.Style = yaml.FlowStyle
		}
		return true
	}
	return false
}
