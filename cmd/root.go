package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"duskpdf/pdfdark"
	"duskpdf/theme"
)

var (
	themeID string
	verbose bool

	// Version info
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// SetVersionInfo sets the version information from main.
func SetVersionInfo(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
}

var rootCmd = &cobra.Command{
	Use:   "duskpdf <input.pdf> <output.pdf> [theme]",
	Short: "Recolor PDFs for dark-mode reading",
	Long: `duskpdf rewrites a PDF's content-stream color operators and lays
down a full-page background fill, producing a dark-mode rendition that
keeps vector graphics and text selectable.

Available themes: classic, claude, chatgpt, sepia, midnight, forest`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputFile := args[0]
		outputFile := args[1]
		if len(args) == 3 {
			themeID = args[2]
		}
		if themeID == "" {
			themeID = theme.Classic.ID
		}

		log := newCLILogger(verbose)
		defer log.Sync()

		data, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("read input file: %w", err)
		}

		log.Info("converting",
			zap.String("input", inputFile),
			zap.String("theme", themeID),
		)

		out, err := pdfdark.ProcessWithLogger(data, themeID, log)
		if err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}

		if err := os.WriteFile(outputFile, out, 0o644); err != nil {
			return fmt.Errorf("write output file: %w", err)
		}

		fmt.Printf("Successfully created: %s\n", outputFile)
		return nil
	},
}

func newCLILogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func themeIDs() []string {
	ids := make([]string, 0, len(theme.All))
	for _, t := range theme.All {
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	return ids
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("duskpdf %s\n", version)
		fmt.Printf("  Build time: %s\n", buildTime)
		fmt.Printf("  Git commit: %s\n", gitCommit)
	},
}

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List available dark-mode themes",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Available themes:")
		fmt.Println()
		for _, t := range theme.All {
			fmt.Printf("  %-10s  Background: %s\n", t.ID, t.Background.Hex())
		}
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  duskpdf input.pdf output.pdf " + strings.Join(themeIDs(), "|"))
	},
}

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(themesCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
