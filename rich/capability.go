// Package rich implements the rich-editing capability: syntax aware
// instances with highlighting and document formatting.
package rich

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"go.uber.org/zap"

	"codepanel/common"
	"codepanel/editor"
)

// Options are capability wide settings.
type Options struct {
	Theme     string // chroma style name
	Formatter string // chroma formatter name, "noop" renders plain text
	TabSize   int    // default indentation for instances not asking for one
}

// Capability is loaded rich-editing capability. It is immutable after Load
// and safe for concurrent use.
type Capability struct {
	log       *zap.Logger
	opts      Options
	lexers    map[string]chroma.Lexer
	style     *chroma.Style
	formatter chroma.Formatter
}

// Load resolves lexers for every supported language together with
// highlighting style and formatter.
func Load(ctx context.Context, opts Options, log *zap.Logger) (*Capability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("rich")

	c := &Capability{
		log:    log,
		opts:   opts,
		lexers: make(map[string]chroma.Lexer),
	}
	if c.opts.TabSize <= 0 {
		c.opts.TabSize = 2
	}

	for _, kind := range common.Kinds() {
		lang := kind.Language()
		lex := lexers.Get(lang)
		if lex == nil {
			return nil, fmt.Errorf("no lexer available for %s", lang)
		}
		c.lexers[lang] = chroma.Coalesce(lex)
	}

	if c.style = styles.Get(opts.Theme); c.style == nil {
		c.style = styles.Fallback
	}
	if c.formatter = formatters.Get(opts.Formatter); c.formatter == nil {
		log.Debug("Unknown formatter, using fallback", zap.String("formatter", opts.Formatter))
		c.formatter = formatters.Fallback
	}

	log.Debug("Capability loaded",
		zap.String("theme", c.style.Name),
		zap.Int("languages", len(c.lexers)))
	return c, nil
}

// NewLoadFunc returns loader function suitable for editor.Loader.
func NewLoadFunc(opts Options, log *zap.Logger) editor.LoadFunc {
	return func(ctx context.Context) (editor.Capability, error) {
		c, err := Load(ctx, opts, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// NewInstance creates editor instance rendering into container. Container
// has to be attached.
func (c *Capability) NewInstance(cont *editor.Container, opts editor.InstanceOptions) (editor.Instance, error) {
	if cont == nil || !cont.Attached() {
		return nil, fmt.Errorf("%w: container is not attached", editor.ErrCreationFailure)
	}
	lex, ok := c.lexers[opts.Language]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported language %q", editor.ErrCreationFailure, opts.Language)
	}
	tabSize := opts.TabSize
	if tabSize <= 0 {
		tabSize = c.opts.TabSize
	}

	inst := &Instance{
		log:       c.log.With(zap.String("container", cont.ID()), zap.String("language", opts.Language)),
		owner:     c,
		container: cont,
		lexer:     lex,
		language:  opts.Language,
		tabSize:   tabSize,
		wordWrap:  opts.WordWrap,
		text:      opts.Value,
	}
	inst.Layout()
	return inst, nil
}

// Highlight renders text of a language with capability style and formatter.
func (c *Capability) Highlight(language, text string) (string, error) {
	lex, ok := c.lexers[language]
	if !ok {
		return "", fmt.Errorf("unsupported language %q", language)
	}
	it, err := lex.Tokenise(nil, text)
	if err != nil {
		return "", fmt.Errorf("unable to tokenise %s: %w", language, err)
	}
	var sb strings.Builder
	if err := c.formatter.Format(&sb, c.style, it); err != nil {
		return "", fmt.Errorf("unable to highlight %s: %w", language, err)
	}
	return sb.String(), nil
}
