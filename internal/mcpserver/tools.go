package mcpserver

import (
	"bytes"
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/linkage/internal/output"
	"github.com/panbanda/linkage/internal/service/analysis"
	"github.com/panbanda/linkage/pkg/driver"
	"github.com/panbanda/linkage/pkg/loader"
	"github.com/panbanda/linkage/pkg/model"
)

// ProgramInput names the program model to analyze.
type ProgramInput struct {
	Path           string `json:"path,omitempty" jsonschema:"Path to a program model document (.json, .yaml or .yml)."`
	Document       string `json:"document,omitempty" jsonschema:"Inline program model document. Takes precedence over path."`
	DocumentFormat string `json:"document_format,omitempty" jsonschema:"Format of the inline document: json (default) or yaml."`
	Format         string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// AnalyzeProgramInput selects the summaries to return.
type AnalyzeProgramInput struct {
	ProgramInput
	Methods []string `json:"methods,omitempty" jsonschema:"Fully qualified methods (Owner.name) to report. Defaults to all."`
}

// ExplainLinksInput selects one variable state.
type ExplainLinksInput struct {
	ProgramInput
	Method   string `json:"method" jsonschema:"Fully qualified method (Owner.name) with a body."`
	Variable string `json:"variable" jsonschema:"Variable name, e.g. a parameter, a local, this, this.items or <return>."`
	Index    string `json:"index,omitempty" jsonschema:"Statement index such as 0 or 1.0.0. Defaults to method exit."`
}

func getFormat(input ProgramInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func loadProgram(input ProgramInput) (*model.Program, error) {
	if input.Document != "" {
		format := loader.FormatJSON
		if input.DocumentFormat == "yaml" || input.DocumentFormat == "yml" {
			format = loader.FormatYAML
		}
		return loader.Decode([]byte(input.Document), format)
	}
	if input.Path == "" {
		return nil, errors.New("either path or document is required")
	}
	return loader.Load(input.Path)
}

func analyze(ctx context.Context, svc *analysis.Service, input ProgramInput) (*driver.Report, error) {
	p, err := loadProgram(input)
	if err != nil {
		return nil, err
	}
	return svc.Analyze(ctx, p, nil)
}

func toolResult(r output.Renderable, format output.Format) (*mcp.CallToolResult, any, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(&buf, format, false).Output(r); err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: buf.String()},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) handleAnalyzeProgram(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeProgramInput) (*mcp.CallToolResult, any, error) {
	rep, err := analyze(ctx, s.svc, input.ProgramInput)
	if err != nil {
		return toolError(err.Error())
	}
	data, err := output.NewAnalysisData(rep, input.Methods...)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(output.AnalysisReport(data, false), getFormat(input.ProgramInput))
}

func (s *Server) handleExplainLinks(ctx context.Context, req *mcp.CallToolRequest, input ExplainLinksInput) (*mcp.CallToolResult, any, error) {
	if input.Method == "" || input.Variable == "" {
		return toolError("method and variable are required")
	}
	rep, err := analyze(ctx, s.svc.Uncached(), input.ProgramInput)
	if err != nil {
		return toolError(err.Error())
	}
	view, err := analysis.Explain(rep, analysis.ExplainOptions{
		Method:   input.Method,
		Variable: input.Variable,
		Index:    input.Index,
	})
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(output.VariableTable(view), getFormat(input.ProgramInput))
}
