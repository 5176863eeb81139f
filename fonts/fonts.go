package fonts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-fonts/latin-modern/lmmono10regular"
	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10bolditalic"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-fonts/latin-modern/lmsans10bold"
	"github.com/go-fonts/latin-modern/lmsans10regular"
)

// Default 是未指定字体时使用的内置字体名。
const Default = "lmroman"

var builtin = map[string][]byte{
	"lmroman":            lmroman10regular.TTF,
	"lmroman-bold":       lmroman10bold.TTF,
	"lmroman-italic":     lmroman10italic.TTF,
	"lmroman-bolditalic": lmroman10bolditalic.TTF,
	"lmsans":             lmsans10regular.TTF,
	"lmsans-bold":        lmsans10bold.TTF,
	"lmmono":             lmmono10regular.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "builtin:lmroman" 或直接 "lmroman"。
// style 含 bold/italic 时优先返回对应字重的变体。
func Load(name, style string) ([]byte, error) {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(name, "builtin:"), "built-in:"))
	if name == "" {
		name = Default
	}
	if v := variant(style); v != "" {
		if data, ok := builtin[name+"-"+v]; ok {
			return data, nil
		}
	}
	data, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("找不到内置字体 %s（可用: %s）", name, strings.Join(names(), ", "))
	}
	return data, nil
}

// names 返回全部内置字体名，按字母排序。
func names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func variant(style string) string {
	s := strings.ToLower(style)
	bold := strings.Contains(s, "bold")
	italic := strings.Contains(s, "italic") || strings.Contains(s, "oblique")
	switch {
	case bold && italic:
		return "bolditalic"
	case bold:
		return "bold"
	case italic:
		return "italic"
	default:
		return ""
	}
}
