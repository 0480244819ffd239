package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rondalog/rondalog/internal/calendar"
	"github.com/rondalog/rondalog/internal/catalog"
	"github.com/rondalog/rondalog/internal/chatexport"
	"github.com/rondalog/rondalog/internal/config"
	"github.com/rondalog/rondalog/internal/dates"
	"github.com/rondalog/rondalog/internal/letter"
	"github.com/rondalog/rondalog/internal/model"
	"github.com/rondalog/rondalog/internal/scheduler"
	"github.com/rondalog/rondalog/internal/shift"
	"github.com/rondalog/rondalog/internal/store"
	"github.com/rondalog/rondalog/internal/tui"
)

var (
	configFlag  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:          "rondalog",
	Short:        "Patrol report assistant for security crews",
	Long:         "rondalog corrects free-text patrol reports, extracts date, time, location and incident category, classifies the roster shift and writes justification letters.",
	SilenceUsage: true,
}

var processCmd = &cobra.Command{
	Use:   "process [text]",
	Short: "Correct and extract a report without the TUI",
	Long:  "Reads the report from the argument, --file or stdin and prints the draft record.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProcess,
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Write, review and save a report interactively",
	RunE:  runReview,
}

var rondaCmd = &cobra.Command{
	Use:   "ronda <date> <shift>",
	Short: "Process the chat export of one shift",
	Long:  "Scopes the configured chat export to the shift window (e.g. 10/03/2024 NoturnoPar, or ontem noite) and reviews the resulting draft.",
	Args:  cobra.ExactArgs(2),
	RunE:  runRonda,
}

var letterCmd = &cobra.Command{
	Use:   "letter <type> [key=value...]",
	Short: "Generate a justification letter",
	Long:  "Types: medical_leave (atestado), shift_swap (troca), tardiness (atraso). Run with --fields to list the variables a type needs.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLetter,
}

var expandCmd = &cobra.Command{
	Use:   "expand <start> <days>",
	Short: "Write a run of consecutive days as prose",
	Args:  cobra.ExactArgs(2),
	RunE:  runExpand,
}

var shiftCmd = &cobra.Command{
	Use:   "shift <date> <time|shift>",
	Short: "Classify a patrol time or show a shift window",
	Args:  cobra.ExactArgs(2),
	RunE:  runShift,
}

var shiftsCmd = &cobra.Command{
	Use:   "shifts",
	Short: "List shift windows with the rostered crew",
	RunE:  runShifts,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List incident categories",
	RunE:  runCatalog,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's drafts and issued letters",
	RunE:  runStatus,
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Remind the crew at every shift change",
	RunE:  runRemind,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running reminder",
	RunE:  runStop,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default ~/.config/rondalog/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "mirror logs to stderr")

	processCmd.Flags().StringP("file", "f", "", "read the report from a file")
	processCmd.Flags().Bool("email", false, "also produce the email variant")
	processCmd.Flags().Bool("save", false, "save the draft to the store")
	processCmd.Flags().Bool("json", false, "print the draft as JSON")
	processCmd.Flags().String("source", "manual", "where the report came from (manual or chat_export)")

	reviewCmd.Flags().String("text", "", "prefill the report text")

	rondaCmd.Flags().String("export", "", "chat export file (default chat.export_path)")
	rondaCmd.Flags().Bool("json", false, "print the draft as JSON instead of reviewing it")

	letterCmd.Flags().Bool("fields", false, "list the variables the letter type needs")
	letterCmd.Flags().Bool("no-save", false, "do not record the letter in the store")

	shiftsCmd.Flags().String("from", "", "first day (default today)")
	shiftsCmd.Flags().Int("days", 1, "number of days")
	shiftsCmd.Flags().String("ics", "", "write the windows as an iCalendar file")

	catalogCmd.Flags().Bool("init", false, "write the default catalog to the catalog path")

	statusCmd.Flags().Int("recent", 0, "also list the N most recently saved drafts")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(rondaCmd)
	rootCmd.AddCommand(letterCmd)
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(shiftCmd)
	rootCmd.AddCommand(shiftsCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore(cfg *config.Config) (*store.DB, error) {
	path, err := cfg.StorePath()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func readReport(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading report: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	wantEmail, _ := cmd.Flags().GetBool("email")
	save, _ := cmd.Flags().GetBool("save")
	asJSON, _ := cmd.Flags().GetBool("json")
	sourceFlag, _ := cmd.Flags().GetString("source")
	source, err := model.ParseSource(sourceFlag)
	if err != nil {
		return err
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	text, err := readReport(cmd, args)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(e.cfg)
	if err != nil {
		return err
	}
	p, err := newPipeline(e)
	if err != nil {
		return err
	}

	draft, err := p.Process(cmd.Context(), model.RawReport{Text: text, Source: source, WantsEmailVariant: wantEmail}, cat)
	if err != nil {
		return err
	}

	if save {
		db, err := openStore(e.cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.InsertDraft(draft); err != nil {
			return fmt.Errorf("saving draft: %w", err)
		}
	}

	if asJSON {
		return printJSON(draft)
	}
	printDraft(draft, cat)
	return nil
}

func runReview(cmd *cobra.Command, args []string) error {
	prefill, _ := cmd.Flags().GetString("text")

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	cat, err := loadCatalog(e.cfg)
	if err != nil {
		return err
	}
	p, err := newPipeline(e)
	if err != nil {
		return err
	}
	db, err := openStore(e.cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	current := shift.Containing(time.Now().In(e.cfg.Location()))
	app := tui.NewApp(p, db, cat, current.String(), prefill)
	return runApp(app)
}

func runApp(app *tui.App) error {
	if _, err := tea.NewProgram(app).Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	result := app.GetResult()
	switch {
	case result == nil:
	case result.Skipped:
		fmt.Println("Report skipped.")
	case result.Draft != nil:
		fmt.Printf("Saved draft %s\n", result.Draft.ID)
	}
	return nil
}

func runRonda(cmd *cobra.Command, args []string) error {
	exportPath, _ := cmd.Flags().GetString("export")
	asJSON, _ := cmd.Flags().GetBool("json")

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	loc := e.cfg.Location()
	d, err := dates.Parse(args[0], time.Now().In(loc))
	if err != nil {
		return err
	}
	window, err := parseWindow(d, args[1], loc)
	if err != nil {
		return err
	}

	if exportPath == "" {
		exportPath = e.cfg.Chat.ExportPath
	}
	if exportPath == "" {
		return fmt.Errorf("no chat export: pass --export or set chat.export_path")
	}

	cat, err := loadCatalog(e.cfg)
	if err != nil {
		return err
	}
	p, err := newPipeline(e)
	if err != nil {
		return err
	}

	src := chatexport.FileSource{Path: exportPath, Location: loc}
	draft, err := p.ProcessShift(cmd.Context(), src, window.Date, window.Code, loc, cat)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(draft)
	}

	db, err := openStore(e.cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	app := tui.NewApp(p, db, cat, window.String(), "").WithDraft(draft)
	return runApp(app)
}

// parseWindow accepts a shift code or a period ("dia", "noite", "day",
// "night") for day d.
func parseWindow(d model.Date, arg string, loc *time.Location) (shift.Interval, error) {
	if code, err := shift.ParseCode(arg); err == nil {
		return shift.WindowFor(d, code, loc)
	}
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "dia", "day", "diurno":
		return shift.WindowForPeriod(d, model.PeriodDay, loc)
	case "noite", "night", "noturno":
		return shift.WindowForPeriod(d, model.PeriodNight, loc)
	}
	return shift.Interval{}, fmt.Errorf("%w: %q (want a shift code, day or night)", shift.ErrUnknownCode, arg)
}

func runLetter(cmd *cobra.Command, args []string) error {
	showFields, _ := cmd.Flags().GetBool("fields")
	noSave, _ := cmd.Flags().GetBool("no-save")

	kind, err := letter.ParseKind(args[0])
	if err != nil {
		return err
	}
	if showFields {
		fields, err := letter.RequiredFields(kind)
		if err != nil {
			return err
		}
		fmt.Printf("%s needs: %s\n", kind, strings.Join(fields, ", "))
		return nil
	}

	vars, err := letter.ParseVariables(args[1:])
	if err != nil {
		return err
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	provider, err := newAIProvider(e.cfg, e.logger)
	if err != nil {
		return err
	}
	composer := letter.NewComposer(provider, e.cfg.Timeout(), e.logger)

	l, err := composer.Compose(cmd.Context(), kind, vars)
	var verr *letter.ValidationError
	if errors.As(err, &verr) {
		return fmt.Errorf("%w\nrun 'rondalog letter %s --fields' to list what it needs", err, kind)
	}
	if err != nil {
		return err
	}

	fmt.Println(l.Text)

	if noSave {
		return nil
	}
	db, err := openStore(e.cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.InsertLetter(string(l.Kind), l.Variables, l.Text); err != nil {
		return fmt.Errorf("saving letter: %w", err)
	}
	return nil
}

func runExpand(cmd *cobra.Command, args []string) error {
	start, err := dates.Parse(args[0], time.Now())
	if err != nil {
		return err
	}
	days, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w, got %q", dates.ErrInvalidDayCount, args[1])
	}
	prose, err := dates.ExpandProse(start, days)
	if err != nil {
		return err
	}
	fmt.Println(prose)
	return nil
}

func runShift(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigOnly()
	if err != nil {
		return err
	}
	loc := cfg.Location()

	d, err := dates.Parse(args[0], time.Now().In(loc))
	if err != nil {
		return err
	}

	var t model.TimeOfDay
	if err := t.UnmarshalText([]byte(args[1])); err == nil {
		code := shift.ClassifyPatrol(d, t)
		fmt.Printf("%s %s: %s (%s)\n", d.Display(), t, code, shift.Classify(t))
		fmt.Printf("On duty: %s\n", shift.Containing(t.On(d, loc)))
		return nil
	}

	iv, err := parseWindow(d, args[1], loc)
	if err != nil {
		return err
	}
	fmt.Println(iv)
	return nil
}

func runShifts(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	days, _ := cmd.Flags().GetInt("days")
	icsPath, _ := cmd.Flags().GetString("ics")

	cfg, err := loadConfigOnly()
	if err != nil {
		return err
	}
	loc := cfg.Location()
	now := time.Now().In(loc)

	start := model.DateOf(now)
	if from != "" {
		if start, err = dates.Parse(from, now); err != nil {
			return err
		}
	}
	windows, err := shift.Span(start, days, loc)
	if err != nil {
		return err
	}

	var roster []calendar.Event
	if cfg.Roster.Source != "" {
		roster, err = calendar.Fetch(cmd.Context(), cfg.Roster.Source, windows[0].Start, windows[len(windows)-1].End)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: roster unavailable: %v\n", err)
		}
	}

	for _, iv := range windows {
		fmt.Println(iv)
		if crew := calendar.Summaries(calendar.During(roster, iv)); crew != "" {
			fmt.Printf("    %s\n", crew)
		}
	}

	if icsPath == "" {
		return nil
	}
	f, err := os.Create(icsPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", icsPath, err)
	}
	defer f.Close()
	if err := calendar.WriteWindows(f, windows, now); err != nil {
		return err
	}
	fmt.Printf("Wrote %d windows to %s\n", len(windows), icsPath)
	return nil
}

func runCatalog(cmd *cobra.Command, args []string) error {
	initFile, _ := cmd.Flags().GetBool("init")

	cfg, err := loadConfigOnly()
	if err != nil {
		return err
	}
	path, err := cfg.CatalogPath()
	if err != nil {
		return err
	}

	if initFile {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := catalog.Save(path, catalog.Default()); err != nil {
			return err
		}
		fmt.Printf("Wrote default catalog to %s\n", path)
		return nil
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("%d categories (%s):\n\n", len(cat), path)
	for _, c := range cat {
		fmt.Printf("  %-14s %s\n", c.ID, c.DisplayName)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	recent, _ := cmd.Flags().GetInt("recent")

	cfg, err := loadConfigOnly()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	loc := cfg.Location()
	now := time.Now().In(loc)
	fmt.Printf("Current shift: %s\n", shift.Containing(now))
	if last, err := db.GetState("last_reminder"); err == nil && last != "" {
		fmt.Printf("Last reminder: %s\n", last)
	}
	fmt.Println()

	drafts, err := db.ListDrafts(model.DateOf(now), loc)
	if err != nil {
		return fmt.Errorf("fetching today's drafts: %w", err)
	}
	if len(drafts) == 0 {
		fmt.Println("No drafts saved today.")
	} else {
		fmt.Println("Today's drafts:")
		fmt.Println()
		for _, d := range drafts {
			fmt.Printf("  %s\n", draftLine(&d))
		}
	}

	if recent > 0 {
		latest, err := db.RecentDrafts(recent)
		if err != nil {
			return fmt.Errorf("fetching recent drafts: %w", err)
		}
		fmt.Printf("\nLast %d drafts:\n\n", len(latest))
		for _, d := range latest {
			fmt.Printf("  %s\n", draftLine(&d))
		}
	}

	counts, err := db.CountLetters()
	if err != nil {
		return fmt.Errorf("counting letters: %w", err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total > 0 {
		fmt.Printf("\nLetters issued: %d", total)
		for _, k := range letter.Kinds {
			if n := counts[string(k)]; n > 0 {
				fmt.Printf("  %s=%d", k, n)
			}
		}
		fmt.Println()
	}
	return nil
}

func runRemind(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	db, err := openStore(e.cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sched, err := scheduler.New(e.cfg, db, e.logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return sched.Run(ctx)
}

func runStop(cmd *cobra.Command, args []string) error {
	pid, err := scheduler.ReadPID()
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending stop signal: %w", err)
	}

	fmt.Printf("Sent stop signal to rondalog (PID %d)\n", pid)
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	configPath := configFlag
	if configPath == "" {
		if err := config.EnsureConfigDir(); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		var err error
		if configPath, err = config.ConfigPath(); err != nil {
			return err
		}
	}

	if err := config.WriteDefault(configPath); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	proc := os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	process, err := os.StartProcess(editor, []string{editor, configPath}, &proc)
	if err != nil {
		// If editor fails, just print the path
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
		return nil
	}
	_, err = process.Wait()
	return err
}

// loadConfigOnly is for commands that never log or call a remote.
func loadConfigOnly() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFlag != "" {
		cfg, err = config.LoadFrom(configFlag)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDraft(d *model.DraftRecord, cat model.Catalog) {
	if d.Correction.UsedFallback {
		fmt.Println("Warning: correction service unavailable, local correction applied.")
		fmt.Println()
	}
	fmt.Println(d.Correction.CorrectedText)
	fmt.Println()
	fmt.Println(draftLine(d))
	if d.Fields.Incident != nil {
		fmt.Printf("Incident: %s\n", *d.Fields.Incident)
	}
	if d.Fields.CategoryID != nil {
		name := *d.Fields.CategoryID
		if c, ok := cat.Lookup(name); ok {
			name = c.DisplayName
		}
		fmt.Printf("Category: %s\n", name)
	}
	if len(d.Missing) > 0 {
		fmt.Printf("Missing: %s\n", strings.Join(d.Missing, ", "))
	}
	if d.Correction.EmailVariant != "" {
		fmt.Println()
		fmt.Println(d.Correction.EmailVariant)
	}
}

func draftLine(d *model.DraftRecord) string {
	f := d.Fields
	parts := []string{"--/--/----", "--:--", "-", "-"}
	if f.Date != nil {
		parts[0] = f.Date.Display()
	}
	if f.Time != nil {
		parts[1] = f.Time.String()
	}
	if f.ShiftCode != nil {
		parts[2] = string(*f.ShiftCode)
	} else if d.Period != nil {
		parts[2] = string(*d.Period)
	}
	if f.Location != nil {
		parts[3] = *f.Location
	}
	return strings.Join(parts, "  ")
}
