package layout

// BuildOptions 配置片段排版所需的依赖与约束。长度均为毫米。
type BuildOptions struct {
	Typesetter Typesetter
	// Width 为块级模式下的可用宽度；Inline 为 true 时忽略。
	Width float64
	// Inline 模式只排一行，Height 即行高。
	Inline bool
	Height float64
	// FontSize 为宿主字号，片段中的 "1.2x" 以此为基准。
	FontSize float64
	Font     FontResource
	// Data 填充文本中的 ${path} 占位符，可为空。
	Data any
}

// Typesetter 负责根据字体与宽度约束将文本拆成可绘制的行。
type Typesetter interface {
	LayoutLines(content string, width float64, font FontResource, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error)
}
