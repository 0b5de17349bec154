package embedding

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Chunk is one embeddable slice of a page's markdown, tagged with the
// nearest section heading.
type Chunk struct {
	Heading string
	Content string
}

// Chunker splits markdown into chunks at h1-h3 boundaries. Sections longer
// than maxSize runes are split again at paragraph breaks; sections shorter
// than minSize are merged into their neighbor so no chunk is trivially
// small.
type Chunker struct {
	md      goldmark.Markdown
	maxSize int
	minSize int
}

func NewChunker(maxSize, minSize int) *Chunker {
	if maxSize <= 0 {
		maxSize = 1200
	}
	if minSize < 0 {
		minSize = 0
	}
	return &Chunker{
		md:      goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
		maxSize: maxSize,
		minSize: minSize,
	}
}

type section struct {
	heading string
	body    strings.Builder
}

// Chunk splits the markdown source into sections, then sizes them.
func (c *Chunker) Chunk(markdown string) []Chunk {
	src := []byte(markdown)
	doc := c.md.Parser().Parse(text.NewReader(src))

	var sections []section
	current := &section{}
	flush := func() {
		if strings.TrimSpace(current.body.String()) != "" {
			sections = append(sections, *current)
		}
		current = &section{}
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if heading, ok := node.(*ast.Heading); ok && heading.Level <= 3 {
			flush()
			title := strings.TrimSpace(string(heading.Text(src)))
			current.heading = title
			current.body.WriteString(strings.Repeat("#", heading.Level) + " " + title + "\n\n")
			continue
		}
		raw := rawSpan(node, src)
		if raw != "" {
			current.body.WriteString(raw)
			current.body.WriteString("\n\n")
		}
	}
	flush()

	var chunks []Chunk
	for _, sec := range sections {
		for _, part := range c.splitBySize(strings.TrimSpace(sec.body.String())) {
			chunks = append(chunks, Chunk{Heading: sec.heading, Content: part})
		}
	}
	return c.mergeSmall(chunks)
}

// rawSpan returns the markdown source covered by a block node. Container
// blocks such as lists own no lines themselves, so their children are
// concatenated.
func rawSpan(node ast.Node, src []byte) string {
	lines := node.Lines()
	if lines == nil || lines.Len() == 0 {
		var b strings.Builder
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			if part := rawSpan(child, src); part != "" {
				b.WriteString(part)
				b.WriteString("\n")
			}
		}
		return strings.TrimRight(b.String(), "\n")
	}
	first := lines.At(0)
	last := lines.At(lines.Len() - 1)
	return strings.TrimRight(string(src[first.Start:last.Stop]), "\n")
}

// splitBySize breaks an oversized section at paragraph boundaries, falling
// back to a hard rune split for a single paragraph past the limit.
func (c *Chunker) splitBySize(content string) []string {
	if len([]rune(content)) <= c.maxSize {
		return []string{content}
	}

	var parts []string
	var b strings.Builder
	size := 0
	for _, para := range strings.Split(content, "\n\n") {
		paraRunes := len([]rune(para))
		if size > 0 && size+paraRunes+2 > c.maxSize {
			parts = append(parts, strings.TrimSpace(b.String()))
			b.Reset()
			size = 0
		}
		if paraRunes > c.maxSize {
			if size > 0 {
				parts = append(parts, strings.TrimSpace(b.String()))
				b.Reset()
				size = 0
			}
			parts = append(parts, hardSplit(para, c.maxSize)...)
			continue
		}
		if size > 0 {
			b.WriteString("\n\n")
			size += 2
		}
		b.WriteString(para)
		size += paraRunes
	}
	if strings.TrimSpace(b.String()) != "" {
		parts = append(parts, strings.TrimSpace(b.String()))
	}
	return parts
}

func hardSplit(s string, max int) []string {
	runes := []rune(s)
	var parts []string
	for len(runes) > 0 {
		n := max
		if n > len(runes) {
			n = len(runes)
		}
		part := strings.TrimSpace(string(runes[:n]))
		if part != "" {
			parts = append(parts, part)
		}
		runes = runes[n:]
	}
	return parts
}

// mergeSmall folds undersized chunks into the following chunk, or the
// previous one at the tail, so lone headings and stub sections do not
// become their own embeddings.
func (c *Chunker) mergeSmall(chunks []Chunk) []Chunk {
	if c.minSize == 0 || len(chunks) < 2 {
		return chunks
	}
	var out []Chunk
	carry := ""
	for i, chunk := range chunks {
		content := chunk.Content
		if carry != "" {
			content = carry + "\n\n" + content
			carry = ""
		}
		if len([]rune(content)) < c.minSize && i < len(chunks)-1 {
			carry = content
			continue
		}
		out = append(out, Chunk{Heading: chunk.Heading, Content: content})
	}
	if carry != "" {
		if len(out) > 0 {
			out[len(out)-1].Content += "\n\n" + carry
		} else {
			out = append(out, Chunk{Content: carry})
		}
	}
	return out
}
