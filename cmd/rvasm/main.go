package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/tinyrange/rvasm/internal/asm/riscv"
	"github.com/tinyrange/rvasm/internal/assembler"
	"github.com/tinyrange/rvasm/internal/config"
	"github.com/xyproto/env/v2"
	"golang.org/x/term"
)

var errAssembly = errors.New("assembly failed")

type job struct {
	table   *riscv.Table
	opts    assembler.Options
	writer  assembler.Writer
	symbols bool
	log     *slog.Logger
}

func run() error {
	output := flag.String("o", "", "output file (directory when several inputs are given)")
	format := flag.String("format", "", "output format: bin, hex, list or raw")
	addressing := flag.String("addressing", "", "label addressing: expanded or line")
	strict := flag.Bool("strict", false, "stop at the first error and reject duplicate labels")
	isa := flag.String("isa", "", "instruction table YAML overriding the built-in RV64IM table")
	configPath := flag.String("config", env.Str("RVASM_CONFIG"), "path to "+config.Filename+" (default: $RVASM_CONFIG, else search upwards from the working directory)")
	color := flag.String("color", "", "colour inline errors: auto, always or never")
	verbose := flag.Bool("v", false, "log label tables and pseudo-instruction expansions")
	initDir := flag.String("init", "", "write a starter "+config.Filename+" into the given directory and exit")
	symbols := flag.Bool("symbols", false, "print the label table to stderr")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `rvasm - two-pass RISC-V (RV64IM) assembler

USAGE:
  rvasm [flags] <source.s> [source.s...]

FLAGS:
  -o PATH            Output file; a directory when several inputs are given
  -format FORMAT     bin (default), hex, list or raw
  -addressing MODE   expanded (default) counts every expanded instruction,
                     line counts 4 bytes per source line
  -strict            Stop at the first error; duplicate labels are errors
  -isa FILE          Instruction table YAML (default: built-in RV64IM)
  -config FILE       Project configuration (default: $RVASM_CONFIG, else the
                     nearest %s)
  -color MODE        auto (default), always or never; auto honours $NO_COLOR
  -symbols           Print the label table to stderr
  -init DIR          Write a starter %s into DIR and exit
  -v                 Verbose logging

OUTPUT FORMATS:
  bin   one 32-digit binary word per line, errors inline
  hex   one 0x%%08x word per line, errors inline
  list  address, word and source side by side
  raw   little-endian image; fails if any line failed

EXAMPLES:
  rvasm prog.s                     Print binary words to stdout
  rvasm -format hex -o prog.hex prog.s
  rvasm -format raw -o out/ a.s b.s  Write out/a.img and out/b.img
  rvasm -init .                    Create %s in the current directory
`, config.Filename, config.Filename, config.Filename)
	}
	flag.Parse()

	if *initDir != "" {
		if err := config.WriteTemplate(*initDir, config.Default()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", filepath.Join(*initDir, config.Filename))
		return nil
	}

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["format"] {
		cfg.Format = *format
	}
	if set["addressing"] {
		cfg.Addressing = *addressing
	}
	if set["strict"] {
		cfg.Strict = *strict
	}
	if set["isa"] {
		if err := cfg.SetISA(*isa); err != nil {
			return err
		}
	}
	if set["color"] {
		cfg.Color = *color
	}
	if set["v"] {
		cfg.Verbose = *verbose
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	table, err := cfg.Table()
	if err != nil {
		return err
	}
	log.Debug("instruction table loaded",
		slog.String("version", table.Version()),
		slog.Int("instructions", table.Len()))

	opts, err := cfg.Options(log)
	if err != nil {
		return err
	}
	outFormat, err := assembler.ParseOutputFormat(cfg.Format)
	if err != nil {
		return err
	}
	colorMode, err := config.ParseColorMode(cfg.Color)
	if err != nil {
		return err
	}

	inputs := flag.Args()
	toStdout := len(inputs) == 1 && *output == ""
	// auto colour only applies when words go straight to a terminal.
	tty := toStdout && term.IsTerminal(int(os.Stdout.Fd())) && !env.Has("NO_COLOR")

	j := job{
		table:   table,
		opts:    opts,
		writer:  assembler.Writer{Format: outFormat, Color: colorMode.Enabled(tty)},
		symbols: *symbols,
		log:     log,
	}

	if len(inputs) == 1 {
		dest := *output
		if dest == "" {
			return j.assemble(inputs[0], os.Stdout)
		}
		return j.assembleToFile(inputs[0], dest)
	}

	var bar *progressbar.ProgressBar
	if term.IsTerminal(int(os.Stderr.Fd())) && !cfg.Verbose {
		bar = progressbar.NewOptions(len(inputs),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("assembling"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Close()
	}

	failed := 0
	for _, input := range inputs {
		dest := outputPath(input, *output, outFormat)
		if bar != nil {
			bar.Describe(filepath.Base(input))
		}
		if err := j.assembleToFile(input, dest); err != nil {
			if !errors.Is(err, errAssembly) {
				return err
			}
			failed++
		}
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d file(s) had errors", errAssembly, failed, len(inputs))
	}
	return nil
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, err
	}
	return config.Discover(wd)
}

// outputPath places the result for input next to it, or inside dir when
// one is given.
func outputPath(input, dir string, format assembler.OutputFormat) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + format.Extension()
	if dir == "" {
		return filepath.Join(filepath.Dir(input), base)
	}
	return filepath.Join(dir, base)
}

func (j job) assembleToFile(input, dest string) error {
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	asmErr := j.assemble(input, f)
	if err := f.Close(); err != nil && asmErr == nil {
		return fmt.Errorf("close output: %w", err)
	}
	return asmErr
}

func (j job) assemble(input string, out io.Writer) error {
	src, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	res, err := assembler.New(j.table, j.opts).Assemble(src)
	if err != nil {
		if res == nil {
			return fmt.Errorf("%s: %w: %w", input, errAssembly, err)
		}
		// strict mode: the partial result is still written.
		j.log.Error("assembly stopped", slog.String("file", input), slog.String("error", err.Error()))
	}

	if j.symbols {
		for _, sym := range res.Symbols.Symbols() {
			fmt.Fprintf(os.Stderr, "%08x  %s\n", sym.Address, sym.Name)
		}
	}

	if j.writer.Format == assembler.FormatRaw {
		for _, lerr := range res.Errors() {
			fmt.Fprintf(os.Stderr, "%s: %v\n", input, lerr)
		}
	}

	if werr := j.writer.Write(out, res); werr != nil {
		return fmt.Errorf("%s: %w: %w", input, errAssembly, werr)
	}

	if n := len(res.Errors()); n > 0 {
		j.log.Warn("source had errors", slog.String("file", input), slog.Int("lines", n))
		return fmt.Errorf("%s: %w: %d line(s) failed", input, errAssembly, n)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rvasm: %v\n", err)
		os.Exit(1)
	}
}
