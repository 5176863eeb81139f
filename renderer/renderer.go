package renderer

import (
	"image"

	"github.com/ByLCY/papyrender/layout"
)

// Renderer 将片段布局结果输出为位图或 SVG。
// baseDir 用于解析片段中相对路径的图片；dpmm 为每毫米像素数。
type Renderer interface {
	RenderImage(result *layout.Result, baseDir string, dpmm float64) (image.Image, error)
	RenderSVG(result *layout.Result, baseDir string) ([]byte, error)
}
