package mcpserver

import (
	"bytes"
	"context"
	"embed"
	"path"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// promptFile is a prompt file: YAML frontmatter followed by a markdown body
// in which {{name}} placeholders are replaced by prompt arguments.
type promptFile struct {
	Name        string           `yaml:"-"`
	Description string           `yaml:"description"`
	Arguments   []promptArgument `yaml:"arguments"`
	Body        string           `yaml:"-"`
}

type promptArgument struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

func loadPrompts() []promptFile {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return nil
	}
	var files []promptFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		content, err := promptFiles.ReadFile(path.Join("prompts", entry.Name()))
		if err != nil {
			continue
		}
		pf := parsePrompt(content)
		pf.Name = strings.TrimSuffix(entry.Name(), ".md")
		files = append(files, pf)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files
}

// parsePrompt splits frontmatter from body. Content without frontmatter is
// all body.
func parsePrompt(content []byte) promptFile {
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return promptFile{Body: string(content)}
	}
	rest := content[4:]
	end := bytes.Index(rest, []byte("\n---\n"))
	if end == -1 {
		return promptFile{Body: string(content)}
	}
	var pf promptFile
	if err := yaml.Unmarshal(rest[:end], &pf); err != nil {
		return promptFile{Body: string(content)}
	}
	pf.Body = strings.TrimPrefix(string(rest[end+5:]), "\n")
	return pf
}

func (s *Server) registerPrompts() {
	for _, pf := range loadPrompts() {
		prompt := &mcp.Prompt{Name: pf.Name, Description: pf.Description}
		for _, a := range pf.Arguments {
			prompt.Arguments = append(prompt.Arguments, &mcp.PromptArgument{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			})
		}
		s.server.AddPrompt(prompt, makePromptHandler(pf))
	}
}

func makePromptHandler(pf promptFile) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		body := pf.Body
		var args map[string]string
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}
		for _, a := range pf.Arguments {
			body = strings.ReplaceAll(body, "{{"+a.Name+"}}", args[a.Name])
		}
		return &mcp.GetPromptResult{
			Description: pf.Description,
			Messages: []*mcp.PromptMessage{
				{
					Role:    "user",
					Content: &mcp.TextContent{Text: body},
				},
			},
		}, nil
	}
}
