package compiler

import (
	"context"
	"fmt"

	"github.com/ByLCY/papyrender/render"
)

// Diagnostic kinds reported by the papyrus compiler.
const (
	KindSyntax   = "SyntaxError"
	KindLayout   = "LayoutError"
	KindRender   = "RenderError"
	KindRange    = "RangeError"
	KindInternal = "InternalError"
)

// Diagnostic is a compile failure in the "Kind: message" shape authors see.
type Diagnostic struct {
	Kind    string
	Message string
	Err     error
}

func (d *Diagnostic) Error() string { return d.Kind + ": " + d.Message }
func (d *Diagnostic) Unwrap() error { return d.Err }

func diagnose(kind string, err error) *Diagnostic {
	return &Diagnostic{Kind: kind, Message: err.Error(), Err: err}
}

func diagnosef(kind, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Guard is the boundary every compile call crosses: panics become
// InternalError diagnostics and failures are marked uncaught.
func Guard(c render.Compiler) render.Compiler {
	return render.CompilerFunc(func(ctx context.Context, req render.Request) (res render.Result, err error) {
		defer func() {
			if p := recover(); p != nil {
				res, err = nil, render.Uncaught(diagnosef(KindInternal, "%v", p))
			}
		}()
		res, err = c.Compile(ctx, req)
		if err != nil {
			return nil, render.Uncaught(err)
		}
		return res, nil
	})
}
