package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/api"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/batch"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/client"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/importer"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/logger"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/models"
)

// ErrPartialFailure is returned when at least one item could not be created.
var ErrPartialFailure = errors.New("some items failed")

type importFlags struct {
	businessID string
	file       string
	sheet      string
	skipHeader bool
	retryFile  string
	rate       float64
}

func (f *importFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.businessID, "business", "", "business id (required)")
	cmd.Flags().StringVarP(&f.file, "file", "f", "-", "input file: text, .xlsx, or - for stdin")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "worksheet to read from an .xlsx file (default first)")
	cmd.Flags().BoolVar(&f.skipHeader, "skip-header", false, "ignore the first row of the input")
	cmd.Flags().StringVar(&f.retryFile, "retry-file", "", "write failed lines here for a later retry")
	cmd.Flags().Float64Var(&f.rate, "rate", 0, "max create calls per second (0 for no limit)")
	_ = cmd.MarkFlagRequired("business")
}

func (a *app) importCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk import records for a business",
		Long: `Bulk import records from pasted text or a spreadsheet.

Lines may be comma or tab separated; a tab anywhere in a line means only tabs
separate fields. Records that already exist are skipped. Failed lines can be
written to --retry-file and fed back in unchanged.`,
	}
	cmd.AddCommand(
		a.importKeywordsCommand(),
		a.importServiceAreasCommand(),
		a.importServicesCommand(),
	)
	return cmd
}

func (a *app) importKeywordsCommand() *cobra.Command {
	var (
		flags    importFlags
		language string
	)
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: `Import keywords as "english, spanish" pairs or, with --language, one per line`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := a.bulkAPI(&flags)
			if language == "" {
				return runImport(cmd, a.deps.Logger, svc.BilingualKeywordImporter(flags.businessID), &flags)
			}
			return runImport(cmd, a.deps.Logger, svc.KeywordImporter(flags.businessID, language), &flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&language, "language", "",
		fmt.Sprintf("import single-language keywords (%s or %s) instead of pairs", models.LanguageEnglish, models.LanguageSpanish))
	return cmd
}

func (a *app) importServiceAreasCommand() *cobra.Command {
	var flags importFlags
	cmd := &cobra.Command{
		Use:   "service-areas",
		Short: `Import service areas as "City, State[, County]" lines`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd, a.deps.Logger, a.bulkAPI(&flags).ServiceAreaImporter(flags.businessID), &flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) importServicesCommand() *cobra.Command {
	var flags importFlags
	cmd := &cobra.Command{
		Use:   "services",
		Short: `Import service offerings as "Name[, Spanish name]" lines`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd, a.deps.Logger, a.bulkAPI(&flags).ServiceImporter(flags.businessID), &flags)
		},
	}
	flags.register(cmd)
	return cmd
}

// bulkAPI returns the shared API, or one paced by --rate.
func (a *app) bulkAPI(flags *importFlags) *api.API {
	if flags.rate <= 0 {
		return a.deps.API
	}
	return api.New(a.deps.Client,
		api.WithLogger(a.deps.Logger),
		api.WithMetrics(a.deps.Metrics),
		api.WithLimiter(rate.NewLimiter(rate.Limit(flags.rate), 1)),
	)
}

func runImport[T any](cmd *cobra.Command, log logger.Logger, eng *batch.Engine[T], flags *importFlags) error {
	text, err := readInput(cmd.InOrStdin(), flags)
	if err != nil {
		return err
	}

	out, runErr := eng.Run(cmd.Context(), text)
	if out == nil {
		return runErr
	}

	renderOutcome(cmd.OutOrStdout(), out.Summary(), out.FailedLines(), out.Failed)
	if err = writeRetryFile(flags.retryFile, out.RetryText()); err != nil {
		return err
	}

	switch {
	case errors.Is(runErr, client.ErrAborted):
		log.Info("Import interrupted", logger.Int("remaining", len(out.Failed)))
		return runErr
	case runErr != nil:
		return runErr
	case len(out.Failed) > 0:
		return fmt.Errorf("%w: %d of %d", ErrPartialFailure, len(out.Failed), len(out.Failed)+len(out.Succeeded))
	default:
		return nil
	}
}

func readInput(stdin io.Reader, flags *importFlags) (string, error) {
	if strings.EqualFold(filepath.Ext(flags.file), ".xlsx") {
		f, err := os.Open(flags.file)
		if err != nil {
			return "", fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		return importer.ReadSpreadsheet(f, importer.SpreadsheetOptions{Sheet: flags.sheet, SkipHeader: flags.skipHeader})
	}

	var (
		data []byte
		err  error
	)
	if flags.file == "" || flags.file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(flags.file)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}

	text := string(data)
	if flags.skipHeader {
		if _, rest, found := strings.Cut(text, "\n"); found {
			text = rest
		} else {
			text = ""
		}
	}
	return text, nil
}

func writeRetryFile(path, text string) error {
	if path == "" || text == "" {
		return nil
	}
	if err := os.WriteFile(path, []byte(text+"\n"), 0o600); err != nil {
		return fmt.Errorf("write retry file: %w", err)
	}
	return nil
}

func renderOutcome[T any](w io.Writer, summary string, lines []string, failed []batch.Failure[T]) {
	fmt.Fprintln(w, summary)
	if len(failed) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Line", "Error"})
	for i, f := range failed {
		t.AppendRow(table.Row{i + 1, lines[i], errorText(f.Err)})
	}
	t.Render()
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, client.ErrAborted) {
		return "interrupted"
	}
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}
