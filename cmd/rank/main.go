package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"resume-ranker/internal/config"
	"resume-ranker/internal/engine"
	"resume-ranker/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	jobDescription string
	jobFile        string
	outputJSON     bool
	topN           int
	envFile        string
)

var rootCmd = &cobra.Command{
	Use:   "rank [files or directories...]",
	Short: "Rank PDF resumes against a job description",
	Long: `Extracts the text of every PDF resume, embeds it together with the job
description and prints the resumes ordered by cosine similarity.
Directories are scanned for *.pdf files.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRank,
}

func init() {
	rootCmd.Flags().StringVarP(&jobDescription, "job", "j", "", "job description text")
	rootCmd.Flags().StringVarP(&jobFile, "job-file", "f", "", "read the job description from a file")
	rootCmd.Flags().BoolVar(&outputJSON, "json", false, "output the report as JSON")
	rootCmd.Flags().IntVarP(&topN, "top", "n", 0, "show only the n best resumes (0 shows all)")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "optional env file with embedding settings")
	rootCmd.MarkFlagsMutuallyExclusive("job", "job-file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runRank(cmd *cobra.Command, args []string) error {
	description, err := readJobDescription()
	if err != nil {
		return err
	}
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("please enter a job description (--job or --job-file)")
	}

	paths, err := collectPDFs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("please provide at least one resume")
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	p, err := engine.NewPipeline(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	resumes := make([]pipeline.Resume, len(paths))
	for i, path := range paths {
		resumes[i].Name = filepath.Base(path)
		resumes[i].Data, resumes[i].Err = os.ReadFile(path)
	}

	report, err := p.Run(cmd.Context(), description, resumes)
	if err != nil {
		return fmt.Errorf("ranking failed: %w", err)
	}

	if topN > 0 && len(report.Results) > topN {
		report.Results = report.Results[:topN]
	}

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	writeText(cmd.OutOrStdout(), report)
	return nil
}

func readJobDescription() (string, error) {
	if jobFile == "" {
		return jobDescription, nil
	}
	data, err := os.ReadFile(jobFile)
	if err != nil {
		return "", fmt.Errorf("failed to read job description: %w", err)
	}
	return string(data), nil
}

// collectPDFs expands directories into the PDF files they contain. Files
// named explicitly are kept whatever their extension, so a mislabeled
// upload is still reported.
func collectPDFs(args []string) ([]string, error) {
	var paths []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		var found []string
		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", arg, err)
		}
		slices.Sort(found)
		paths = append(paths, found...)
	}

	return paths, nil
}
