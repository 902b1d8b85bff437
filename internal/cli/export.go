package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/nocturnalbeast/cutie/internal/alm"
	"github.com/nocturnalbeast/cutie/internal/config"
	"github.com/nocturnalbeast/cutie/internal/export"
	"github.com/nocturnalbeast/cutie/internal/mailer"
)

// runExport performs the whole export as one sequential pass. Any failure
// aborts the run; errors carry the failing stage in their message and no
// output file exists unless every fetch succeeded.
func runExport(ctx context.Context, cmd *cli.Command) error {
	log := slog.With("run", uuid.NewString()[:8])

	prefs, mapping, err := loadRunConfig(cmd)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	outputPath, err := resolveOutputPath(cmd.String("output"), prefs.Output)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	baseURL, err := url.Parse(prefs.ALM.WebDomain)
	if err != nil {
		return fmt.Errorf("config load: %w: invalid alm.webdomain: %v", config.ErrConfig, err)
	}

	opts := []alm.Option{}
	if !prefs.ALM.StrictTLS() {
		log.Warn("certificate verification disabled (alm.https_strict: false)")
		opts = append(opts, alm.WithInsecureTLS())
	}
	if len(prefs.Filters) > 0 {
		opts = append(opts, alm.WithFilters(prefs.Filters))
	}
	client := alm.NewClient(baseURL, prefs.ALM.Domain, prefs.ALM.Project, opts...)
	defer client.Close()

	if err := client.Authenticate(ctx, prefs.ALM.Username, prefs.ALM.Password); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer func() {
		// Best effort; the session expires server-side anyway.
		if err := client.Logout(context.WithoutCancel(ctx)); err != nil {
			log.Debug("alm logout failed", "error", err)
		}
	}()

	rootID, err := client.ResolveFolderPath(ctx, prefs.ALM.TestsFolder)
	if err != nil {
		return fmt.Errorf("fetch: resolving folder %q: %w", prefs.ALM.TestsFolder, err)
	}
	log.Info("starting export",
		"project", prefs.ALM.Project, "folder", prefs.ALM.TestsFolder, "root-id", rootID)

	mapper := export.NewMapper(mapping)
	bar := newProgressBar()
	var records []export.Record
	folderCount := 0
	err = client.Walk(ctx, rootID, func(folder *alm.Folder, test *alm.Test) error {
		if folder != nil {
			folderCount++
			log.Debug("entering folder", "id", folder.ID, "name", folder.Name)
			return nil
		}
		records = append(records, mapper.Map(test.Fields))
		return bar.Add(1)
	})
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	log.Info("fetch complete", "folders", folderCount, "tests", len(records))

	if err := export.WriteWorkbook(outputPath, mapper.Columns(), records); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	fmt.Printf("%s %s (%d tests)\n",
		color.GreenString("Export written to"), outputPath, len(records))

	if cmd.Bool("email") {
		log.Info("sending export by email", "to", prefs.Email.ToList)
		if err := mailer.Send(prefs.Email, outputPath, time.Now()); err != nil {
			return fmt.Errorf("email: %w", err)
		}
	}
	return nil
}

// loadRunConfig loads the preferences and picks the mapping table: a
// separate mapping file wins over the inline preferences section, which
// wins over the built-in defaults.
func loadRunConfig(cmd *cli.Command) (*config.Preferences, *config.Mapping, error) {
	prefsPath := cmd.String("preferences")
	if prefsPath == "" {
		return nil, nil, fmt.Errorf(
			"%w: no preferences file specified; use --generate-preferences to create a template",
			config.ErrConfig)
	}
	prefs, err := config.Load(prefsPath)
	if err != nil {
		return nil, nil, err
	}
	if username := cmd.String("username"); username != "" {
		prefs.ALM.Username = username
	}
	if password := cmd.String("password"); password != "" {
		prefs.ALM.Password = password
	}
	if err := prefs.Validate(); err != nil {
		return nil, nil, err
	}

	var mapping *config.Mapping
	switch {
	case cmd.String("mapping") != "":
		if mapping, err = config.LoadMapping(cmd.String("mapping")); err != nil {
			return nil, nil, err
		}
	case prefs.Mapping != nil && prefs.Mapping.Len() > 0:
		mapping = prefs.Mapping
	default:
		slog.Warn("no mapping provided, using the built-in field table")
		mapping = config.DefaultMapping()
	}
	return prefs, mapping, nil
}

// resolveOutputPath picks the output location: the -o flag, then the
// preferences, then a timestamped default in the working directory. A
// directory path gets a default file name appended.
func resolveOutputPath(flagPath, prefsPath string) (string, error) {
	path := flagPath
	if path == "" {
		path = prefsPath
	}
	if path == "" {
		path = fmt.Sprintf("export_%s.xlsx", time.Now().Format("2006_01_02_15_04"))
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "cutie_export.xlsx")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: resolving output path %q: %v", config.ErrConfig, path, err)
	}
	return abs, nil
}

func newProgressBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString("Fetching tests from ALM")),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)
}
