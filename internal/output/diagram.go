package output

import (
	"strings"

	"sqlerd/internal/diagram"
)

type drawioFormatter struct{}

func (drawioFormatter) Format(r *Report) (string, error) {
	if r == nil || r.Rendering == nil {
		return "", ErrNoRendering
	}
	var sb strings.Builder
	if err := r.Rendering.Document.Encode(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

type mermaidFormatter struct{}

func (mermaidFormatter) Format(r *Report) (string, error) {
	if r == nil || r.Rendering == nil {
		return "", ErrNoRendering
	}
	var sb strings.Builder
	if err := diagram.Mermaid(&sb, r.Rendering.Layout); err != nil {
		return "", err
	}
	return sb.String(), nil
}
