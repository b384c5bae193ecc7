package skills

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// Parse errors returned by ParseFrontmatter and ParseDescriptor
var (
	ErrMissingFrontmatter = errors.New("missing frontmatter")
	ErrMissingName        = errors.New("skill name is required in frontmatter")
	ErrMissingDescription = errors.New("skill description is required in frontmatter")
)

var markdown = goldmark.New(goldmark.WithExtensions(meta.Meta))

// ParseFrontmatter parses the YAML header and markdown body of a SKILL.md
// file without enforcing required fields.
func ParseFrontmatter(content []byte) (*Descriptor, error) {
	if !hasFrontmatter(content) {
		return nil, ErrMissingFrontmatter
	}

	pctx := parser.NewContext()
	doc := markdown.Parser().Parse(text.NewReader(content), parser.WithContext(pctx))

	metaData, err := meta.TryGet(pctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse frontmatter")
	}
	if metaData == nil {
		return nil, ErrMissingFrontmatter
	}

	// goldmark-meta yields floats for numeric scalars, so the typed fields
	// are decoded from the raw header to keep values such as "1.10" intact
	var fm Frontmatter
	if err := yaml.Unmarshal(frontmatterBlock(content), &fm); err != nil {
		return nil, errors.Wrap(err, "failed to decode frontmatter")
	}

	fm.Name = strings.TrimSpace(fm.Name)
	fm.Description = strings.TrimSpace(fm.Description)

	return &Descriptor{
		Frontmatter: fm,
		Keys:        frontmatterKeys(pctx),
		Title:       firstHeading(doc, content),
		Body:        extractBodyContent(string(content)),
	}, nil
}

// ParseDescriptor parses a SKILL.md file and fails when name or description
// is missing or empty.
func ParseDescriptor(content []byte) (*Descriptor, error) {
	d, err := ParseFrontmatter(content)
	if err != nil {
		return nil, err
	}
	if d.Name == "" {
		return nil, ErrMissingName
	}
	if d.Description == "" {
		return nil, ErrMissingDescription
	}
	return d, nil
}

func hasFrontmatter(content []byte) bool {
	firstLine, _, _ := bytes.Cut(content, []byte("\n"))
	return strings.TrimSpace(string(firstLine)) == "---"
}

// frontmatterBlock returns the YAML between the opening and closing ---
// lines
func frontmatterBlock(content []byte) []byte {
	lines := bytes.SplitAfter(content, []byte("\n"))
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(string(lines[i])) == "---" {
			return bytes.Join(lines[1:i], nil)
		}
	}
	return nil
}

// UnmarshalYAML accepts allowed-tools either as a YAML list or as a comma
// separated string and records the literal text of metadata.version.
func (f *Frontmatter) UnmarshalYAML(node *yaml.Node) error {
	if tools := mappingValue(node, "allowed-tools"); tools != nil && tools.Kind == yaml.ScalarNode && tools.ShortTag() == "!!str" {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, part := range strings.Split(tools.Value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: part})
			}
		}
		*tools = *seq
	}

	type plain Frontmatter
	if err := node.Decode((*plain)(f)); err != nil {
		return err
	}

	if version := mappingValue(mappingValue(node, "metadata"), "version"); version != nil &&
		version.Kind == yaml.ScalarNode && version.ShortTag() != "!!null" {
		f.metadataVersion = version.Value
	}
	return nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func frontmatterKeys(pctx parser.Context) []string {
	items := meta.GetItems(pctx)
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, fmt.Sprint(item.Key))
	}
	return keys
}

func firstHeading(doc ast.Node, source []byte) string {
	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level != 1 {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		for c := heading.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		title = strings.TrimSpace(buf.String())
		return ast.WalkStop, nil
	})
	return title
}

// extractBodyContent removes YAML frontmatter and returns the body
func extractBodyContent(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
}
