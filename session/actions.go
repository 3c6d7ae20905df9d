package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"codepanel/common"
	"codepanel/config"
	"codepanel/css"
	"codepanel/rich"
	"codepanel/state"
)

// highlightFormatter is chroma formatter used for colorized console output.
const highlightFormatter = "terminal256"

// Format reformats markup or style file the way code panel does it.
func Format(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("format")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	dst := cmd.Args().Get(1)
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	kind, err := kindOf(cmd.String("kind"), src)
	if err != nil {
		return err
	}
	env.Highlight = cmd.Bool("highlight") && len(dst) == 0 && config.EnableColorOutput(os.Stdout)

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("unable to read source: %w", err)
	}

	log.Info("Formatting", zap.String("source", src), zap.Stringer("kind", kind))
	defer func(start time.Time) {
		log.Debug("Formatting completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	sess := New(env)
	defer func() {
		if er := sess.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close session: %w", er))
		}
	}()

	out, err := sess.FormatText(ctx, kind, string(data))
	if err != nil {
		return fmt.Errorf("unable to format %s: %w", kind, err)
	}
	if env.Highlight {
		out = highlight(ctx, env, kind, out)
	}
	return writeResult(dst, out)
}

// Scoped extracts identifier scoped rules from style file.
func Scoped(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("scoped")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("unable to read source: %w", err)
	}

	block := css.ScopedBlock(string(data))
	log.Debug("Scoped block extracted", zap.Int("fragments", len(css.SplitRules(block))))
	if len(block) == 0 {
		log.Warn("No identifier scoped rules found", zap.String("source", src))
		return nil
	}
	return writeResult(cmd.Args().Get(1), block+"\n")
}

// Apply loads page into host editor, edits selected component through code
// panel and outputs resulting page.
func Apply(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("apply")

	var req Request
	for _, f := range []struct {
		flag string
		to   *string
	}{
		{"page", &req.Page},
		{"markup", &req.Markup},
		{"style", &req.Style},
		{"remove", &req.Remove},
	} {
		if *f.to, err = readOptional(cmd.String(f.flag)); err != nil {
			return fmt.Errorf("unable to read %s: %w", f.flag, err)
		}
	}
	req.Select = cmd.String("select")
	env.Dump = cmd.Bool("dump")

	sess := New(env)
	defer func() {
		if er := sess.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close session: %w", er))
		}
	}()

	log.Info("Applying changes", zap.String("select", req.Select))
	if err := sess.Apply(ctx, req); err != nil {
		return err
	}
	return writeResult(cmd.Args().Get(0), sess.Render(env.Dump))
}

func kindOf(name, path string) (common.Kind, error) {
	if len(name) > 0 {
		return common.ParseKind(name)
	}
	if kind, ok := common.KindFromPath(path); ok {
		return kind, nil
	}
	return common.KindMarkup, nil
}

func readOptional(path string) (string, error) {
	if len(path) == 0 {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeResult(dst, text string) error {
	if len(dst) == 0 {
		_, err := os.Stdout.WriteString(text)
		return err
	}
	if err := os.WriteFile(dst, []byte(text), 0644); err != nil {
		return fmt.Errorf("unable to write destination file '%s': %w", dst, err)
	}
	return nil
}

// highlight colorizes text for console, returns text unchanged on failure.
func highlight(ctx context.Context, env *state.LocalEnv, kind common.Kind, text string) string {
	opts := env.RichOptions()
	opts.Formatter = highlightFormatter
	c, err := rich.Load(ctx, opts, env.Log)
	if err != nil {
		env.Log.Warn("Unable to highlight output", zap.Error(err))
		return text
	}
	out, err := c.Highlight(kind.Language(), text)
	if err != nil {
		env.Log.Warn("Unable to highlight output", zap.Error(err))
		return text
	}
	return out
}
