package mcpserver

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// promptArgument is declared in frontmatter and substituted into the body
// wherever {{name}} appears.
type promptArgument struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Default     string `yaml:"default"`
	Required    bool   `yaml:"required"`
}

type promptFrontmatter struct {
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	Arguments   []promptArgument `yaml:"arguments"`
}

// prompt is one embedded markdown prompt, named after its file.
type prompt struct {
	name string
	promptFrontmatter
	body string
}

// loadPrompts reads every *.md file under prompts/ in fsys.
func loadPrompts(fsys fs.FS) ([]prompt, error) {
	names, err := fs.Glob(fsys, "prompts/*.md")
	if err != nil {
		return nil, err
	}
	prompts := make([]prompt, 0, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		fm, body, err := parseFrontmatter(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		prompts = append(prompts, prompt{
			name:              strings.TrimSuffix(path.Base(name), ".md"),
			promptFrontmatter: fm,
			body:              body,
		})
	}
	return prompts, nil
}

// parseFrontmatter splits a "---" delimited YAML header from the body.
// Content without a header is returned whole.
func parseFrontmatter(content []byte) (promptFrontmatter, string, error) {
	var fm promptFrontmatter
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return fm, string(content), nil
	}
	rest := content[4:]
	end := bytes.Index(rest, []byte("\n---\n"))
	if end == -1 {
		return fm, string(content), nil
	}
	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return fm, "", fmt.Errorf("invalid frontmatter: %w", err)
	}
	return fm, strings.TrimPrefix(string(rest[end+5:]), "\n"), nil
}

// registerPrompts adds the embedded prompts to the server. The embedded set
// is fixed at build time and covered by tests, so a load failure leaves the
// server without prompts.
func (s *Server) registerPrompts() {
	prompts, err := loadPrompts(promptFiles)
	if err != nil {
		return
	}
	for _, p := range prompts {
		s.server.AddPrompt(p.definition(), p.handle)
	}
}

func (p prompt) definition() *mcp.Prompt {
	def := &mcp.Prompt{Name: p.name, Title: p.Title, Description: p.Description}
	for _, arg := range p.Arguments {
		def.Arguments = append(def.Arguments, &mcp.PromptArgument{
			Name:        arg.Name,
			Description: arg.Description,
			Required:    arg.Required,
		})
	}
	return def
}

// render substitutes argument values, falling back to each argument's default.
func (p prompt) render(values map[string]string) (string, error) {
	pairs := make([]string, 0, 2*len(p.Arguments))
	for _, arg := range p.Arguments {
		v, ok := values[arg.Name]
		if !ok || v == "" {
			if arg.Required {
				return "", fmt.Errorf("prompt %s: missing argument %q", p.name, arg.Name)
			}
			v = arg.Default
		}
		pairs = append(pairs, "{{"+arg.Name+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(p.body), nil
}

func (p prompt) handle(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var values map[string]string
	if req != nil && req.Params != nil {
		values = req.Params.Arguments
	}
	text, err := p.render(values)
	if err != nil {
		return nil, err
	}
	return &mcp.GetPromptResult{
		Description: p.Description,
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: text}},
		},
	}, nil
}
