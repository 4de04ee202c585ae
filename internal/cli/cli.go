// Package cli implements the watermarker command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/watermarker/pkg/buildinfo"
	"github.com/matzehuels/watermarker/pkg/cache"
	"github.com/matzehuels/watermarker/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "watermarker"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// The root command itself watermarks one image: watermarker <text> <url>.
func (c *CLI) RootCommand() *cobra.Command {
	var flags watermarkFlags

	root := &cobra.Command{
		Use:   "watermarker <text> <url>",
		Short: "Watermarker turns images into captioned avatars",
		Long: `Watermarker downloads an image, crops it to a small avatar with rounded
transparent corners and writes a caption across it. The result is saved as
watermarker-<name>.png in the output directory.`,
		Example: `  watermarker "Hello" https://example.com/cat.jpg
  watermarker --wrap --font "Go Bold" --color "#ffcc00" "Long caption here" https://example.com/dog.png`,
		Version:       buildinfo.Version,
		Args:          cobra.ExactArgs(2),
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Arguments are valid from here on; runtime failures need no usage text.
			cmd.SilenceUsage = true
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatermark(cmd, args[0], args[1], flags)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	flags.register(root)

	// Register all subcommands
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.fontsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Watermark Command
// =============================================================================

// watermarkFlags holds the flags of the root command.
type watermarkFlags struct {
	width     int
	height    int
	radius    float64
	padding   float64
	font      string
	fontSize  float64
	color     string
	wrap      bool
	outputDir string
	timeout   time.Duration
	noCache   bool
}

func (f *watermarkFlags) register(cmd *cobra.Command) {
	def := pipeline.DefaultOptions()

	fs := cmd.Flags()
	fs.IntVar(&f.width, "width", def.Width, "avatar width in pixels")
	fs.IntVar(&f.height, "height", def.Height, "avatar height in pixels")
	fs.Float64Var(&f.radius, "radius", def.Radius, "corner radius in pixels (0 for square corners)")
	fs.Float64Var(&f.padding, "padding", def.Padding, "space between caption and image edges")
	fs.StringVar(&f.font, "font", def.Font, "font family, font file path, or embedded family (Go, Go Bold, ...)")
	fs.Float64Var(&f.fontSize, "font-size", def.FontSize, "initial font size in points")
	fs.StringVar(&f.color, "color", def.Color, "caption color name or hex (#ff69b4)")
	fs.BoolVar(&f.wrap, "wrap", def.WordWrap, "wrap the caption at word boundaries")
	fs.StringVar(&f.outputDir, "output-dir", def.OutputDir, "directory for the result")
	fs.DurationVar(&f.timeout, "timeout", 0, "download timeout (0 for none)")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable the font lookup cache")
}

// options builds pipeline options from the flags.
func (f *watermarkFlags) options(text, url string) pipeline.Options {
	opts := pipeline.NewOptions(text, url)
	opts.Width = f.width
	opts.Height = f.height
	opts.Radius = f.radius
	opts.Padding = f.padding
	opts.Font = f.font
	opts.FontSize = f.fontSize
	opts.Color = f.color
	opts.WordWrap = f.wrap
	opts.OutputDir = f.outputDir
	return opts
}

func (c *CLI) runWatermark(cmd *cobra.Command, text, url string, flags watermarkFlags) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(flags.noCache, flags.timeout)
	if err != nil {
		return err
	}
	defer runner.Close()

	out := cmd.OutOrStdout()
	runner.Progress = func(step, subject string) {
		fmt.Fprintf(out, "> %s %q\n", step, subject)
	}

	prog := newProgress(logger)
	result, err := runner.Execute(ctx, flags.options(text, url))
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Created %s with %s", result.Path, result.Fit.Font))
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool, timeout time.Duration) (*pipeline.Runner, error) {
	cache, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, timeout, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/watermarker/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
