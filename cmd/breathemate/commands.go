package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/breathemate/breathemate/internal/coach"
	"github.com/breathemate/breathemate/internal/config"
	"github.com/breathemate/breathemate/internal/journal"
	"github.com/breathemate/breathemate/internal/report"
)

// --- auth ---

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the server and store the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		email := loginEmail
		if email == "" {
			email = cfg.Auth.DemoEmail
		}
		password := loginPassword
		if password == "" {
			password = cfg.Auth.DemoPassword
		}

		client := &apiClient{
			baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
			httpClient: newAPIHTTPClient(),
		}

		resp, err := client.post(cmd.Context(), "/auth/login", map[string]string{
			"email":    email,
			"password": password,
		})
		if err != nil {
			return err
		}

		var session struct {
			Token     string `json:"token"`
			Email     string `json:"email"`
			ExpiresAt string `json:"expiresAt"`
		}
		if err := decodeJSON(resp, &session); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		if err := config.SetKey("auth.token", session.Token); err != nil {
			return fmt.Errorf("storing session token: %w", err)
		}

		printSuccess("logged in as %s", session.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/auth/logout", nil)
		if err != nil {
			return err
		}
		resp.Body.Close()

		if err := config.DeleteKey("auth.token"); err != nil {
			return fmt.Errorf("clearing session token: %w", err)
		}

		printSuccess("logged out")
		return nil
	},
}

// --- journal ---

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Manage journal entries",
}

var (
	listRisk   string
	listRange  string
	listType   string
	listSearch string
	listJSON   bool
)

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/journal/entries" + listQueryString()
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var entries []journal.Entry
		if err := decodeJSON(resp, &entries); err != nil {
			return err
		}

		if listJSON {
			return printJSON(entries)
		}

		if len(entries) == 0 {
			printWarning("no entries match")
			return nil
		}
		for _, e := range entries {
			fmt.Println(formatEntryLine(e))
		}
		return nil
	},
}

func listQueryString() string {
	params := []string{}
	add := func(key, val string) {
		if val != "" {
			params = append(params, key+"="+val)
		}
	}
	add("risk", listRisk)
	add("range", listRange)
	add("type", listType)
	add("search", listSearch)
	if len(params) == 0 {
		return ""
	}
	return "?" + strings.Join(params, "&")
}

func formatEntryLine(e journal.Entry) string {
	date := e.Date.Local().Format("2006-01-02 15:04")
	switch e.Type {
	case journal.TypeBreathAnalysis:
		cond, risk := "?", "?"
		if e.Condition != nil {
			cond = *e.Condition
		}
		if e.RiskLevel != nil {
			risk = *e.RiskLevel
		}
		return fmt.Sprintf("%s  %s  [analysis]  %s (risk %s)", e.ID[:8], date, cond, risk)
	case journal.TypeSymptoms:
		sev := ""
		if e.Severity != nil {
			sev = string(*e.Severity)
		}
		return fmt.Sprintf("%s  %s  [symptoms]  %s (%s)", e.ID[:8], date, strings.Join(e.Symptoms, ", "), sev)
	default:
		notes := e.Notes
		if len(notes) > 60 {
			notes = notes[:60] + "..."
		}
		return fmt.Sprintf("%s  %s  [note]      %s", e.ID[:8], date, notes)
	}
}

var (
	addSymptoms []string
	addSeverity string
	addTriggers string
	addNotes    string
)

var journalAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a symptom observation or free-form note",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(addSymptoms) > 0 && addSeverity == "" {
			return fmt.Errorf("--severity is required with --symptoms")
		}
		if len(addSymptoms) == 0 && addNotes == "" {
			return fmt.Errorf("nothing to record: pass --symptoms or --notes")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{
			"triggers": addTriggers,
			"notes":    addNotes,
		}
		if len(addSymptoms) > 0 {
			body["type"] = "symptoms"
			body["symptoms"] = addSymptoms
			body["severity"] = addSeverity
		} else {
			body["type"] = "manual"
		}

		resp, err := client.post(cmd.Context(), "/journal/entries", body)
		if err != nil {
			return err
		}

		var entry journal.Entry
		if err := decodeJSON(resp, &entry); err != nil {
			return err
		}

		printSuccess("recorded entry %s", entry.ID[:8])
		return nil
	},
}

var journalShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one journal entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/journal/entries/"+args[0])
		if err != nil {
			return err
		}

		var entry journal.Entry
		if err := decodeJSON(resp, &entry); err != nil {
			return err
		}
		return printJSON(entry)
	},
}

var (
	editSymptoms []string
	editSeverity string
	editTriggers string
	editNotes    string
)

var journalEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a symptoms or manual entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch := map[string]any{}
		if cmd.Flags().Changed("symptoms") {
			patch["symptoms"] = editSymptoms
		}
		if cmd.Flags().Changed("severity") {
			patch["severity"] = editSeverity
		}
		if cmd.Flags().Changed("triggers") {
			patch["triggers"] = editTriggers
		}
		if cmd.Flags().Changed("notes") {
			patch["notes"] = editNotes
		}
		if len(patch) == 0 {
			return fmt.Errorf("no fields to change")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.patch(cmd.Context(), "/journal/entries/"+args[0], patch)
		if err != nil {
			return err
		}

		var entry journal.Entry
		if err := decodeJSON(resp, &entry); err != nil {
			return err
		}

		printSuccess("updated entry %s", entry.ID[:8])
		return nil
	},
}

var exportOutput string

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the whole journal as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/journal/export")
		if err != nil {
			return err
		}

		var doc journal.ExportDocument
		if err := decodeJSON(resp, &doc); err != nil {
			return err
		}

		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}

		if exportOutput == "" || exportOutput == "-" {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		printSuccess("exported %d entries to %s", doc.TotalEntries, exportOutput)
		return nil
	},
}

var importMaxPages int

var journalImportCmd = &cobra.Command{
	Use:   "import <report.pdf>",
	Short: "Import a medical report PDF as a journal note",
	Long: `Extracts the text of a PDF medical report and records a summarized
version as a free-form journal note.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		printStep("extracting text from %s", args[0])
		text, err := report.ExtractText(args[0], importMaxPages)
		if err != nil {
			return fmt.Errorf("reading report: %w", err)
		}

		summary := report.Summarize(text, 2000)

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/journal/entries", map[string]any{
			"type":  "manual",
			"notes": fmt.Sprintf("Imported report %s: %s", args[0], summary),
		})
		if err != nil {
			return err
		}

		var entry journal.Entry
		if err := decodeJSON(resp, &entry); err != nil {
			return err
		}

		printSuccess("imported report as entry %s", entry.ID[:8])
		return nil
	},
}

// --- analysis ---

type analysisView struct {
	ID              string          `json:"id"`
	Status          string          `json:"status"`
	Source          string          `json:"source"`
	DurationSeconds float64         `json:"durationSeconds"`
	Result          json.RawMessage `json:"result,omitempty"`
	Error           string          `json:"error,omitempty"`
	CreatedAt       string          `json:"createdAt"`
}

var (
	analyzeDuration float64
	analyzeWait     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Queue a breath analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/analyze", map[string]any{
			"source":          "recording",
			"durationSeconds": analyzeDuration,
		})
		if err != nil {
			return err
		}

		var view analysisView
		if err := decodeJSON(resp, &view); err != nil {
			return err
		}

		printSuccess("queued analysis %s", view.ID[:8])
		if !analyzeWait {
			printStep("check progress with: breathemate analyze show %s", view.ID)
			return nil
		}
		return waitForAnalysis(cmd.Context(), client, view.ID)
	},
}

func waitForAnalysis(ctx context.Context, client *apiClient, id string) error {
	printStep("waiting for analysis to complete")
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}

		resp, err := client.get(ctx, "/analyze/"+id)
		if err != nil {
			return err
		}
		var view analysisView
		if err := decodeJSON(resp, &view); err != nil {
			return err
		}

		switch view.Status {
		case "completed":
			printSuccess("analysis complete")
			return printJSON(view)
		case "failed":
			printError("analysis failed: %s", view.Error)
			return fmt.Errorf("analysis %s failed", id)
		}
	}
	return fmt.Errorf("timed out waiting for analysis %s", id)
}

var analyzeShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/analyze/"+args[0])
		if err != nil {
			return err
		}

		var view analysisView
		if err := decodeJSON(resp, &view); err != nil {
			return err
		}
		return printJSON(view)
	},
}

var analyzeListLimit int

var analyzeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/analyses?limit=%d", analyzeListLimit))
		if err != nil {
			return err
		}

		var views []analysisView
		if err := decodeJSON(resp, &views); err != nil {
			return err
		}

		if len(views) == 0 {
			printWarning("no analyses yet")
			return nil
		}
		for _, v := range views {
			line := fmt.Sprintf("%s  %-10s  %s  %.0fs", v.ID[:8], v.Status, v.Source, v.DurationSeconds)
			if v.Error != "" {
				line += "  (" + v.Error + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show journal statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/journal/stats")
		if err != nil {
			return err
		}

		var stats journal.Stats
		if err := decodeJSON(resp, &stats); err != nil {
			return err
		}

		printStatus("Total entries", "%d", stats.Total)
		printStatus("Average risk", "%s", stats.AverageRisk)
		printStatus("Current streak", "%d days", stats.CurrentStreak)
		printStatus("High-risk entries", "%d", stats.HighRiskCount)
		return nil
	},
}

// --- coach ---

var coachCmd = &cobra.Command{
	Use:   "coach",
	Short: "Guided breathing exercises",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/coach/recommendation")
		if err != nil {
			return err
		}

		var rec coach.Recommendation
		if err := decodeJSON(resp, &rec); err != nil {
			return err
		}

		printStatus("Recommended", "%s", rec.Exercise.Name)
		printStatus("Reason", "%s", rec.Reason)
		printStep("start it with: breathemate coach run %s", rec.Exercise.Key)
		return nil
	},
}

var coachListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available exercises",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, ex := range coach.Exercises() {
			fmt.Printf("%-12s %s — inhale %ds, hold %ds, exhale %ds, %d cycles (~%d min)\n",
				ex.Key, ex.Name, ex.InhaleSeconds, ex.HoldSeconds, ex.ExhaleSeconds, ex.Cycles, ex.DurationMinutes)
		}
		return nil
	},
}

var coachRunCmd = &cobra.Command{
	Use:   "run <exercise>",
	Short: "Run a guided breathing session in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ex, ok := coach.ExerciseByKey(args[0])
		if !ok {
			return fmt.Errorf("unknown exercise %q — see: breathemate coach list", args[0])
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		printStep("starting %s (%d cycles), press Ctrl-C to stop", ex.Name, ex.Cycles)

		runner := coach.NewRunner(ex)
		for step := range runner.Run(ctx) {
			fmt.Printf("cycle %d/%d  %s for %ds\n", step.Cycle, ex.Cycles, step.Phase, step.Seconds)
		}
		if ctx.Err() != nil {
			printWarning("session interrupted")
			return nil
		}
		printSuccess("session complete")
		return nil
	},
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update the health profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the health profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/profile")
		if err != nil {
			return err
		}

		var p json.RawMessage
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}
		return printJSON(p)
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set a profile field",
	Long: `Set one profile field. Values are plain strings; list fields such as
health.conditions take comma-separated values.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.patch(cmd.Context(), "/profile", map[string]any{
			args[0]: args[1],
		})
		if err != nil {
			return err
		}

		var p json.RawMessage
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}

		printSuccess("set %s", args[0])
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change local configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		for _, info := range config.ShowAll(cfg) {
			printStatus(info.Key, "%s", info.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return fmt.Errorf("valid keys: %s: %w", strings.Join(config.ValidKeys(), ", "), err)
		}
		printSuccess("set %s", args[0])
		return nil
	},
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email (defaults to the demo account)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")

	journalListCmd.Flags().StringVar(&listRisk, "risk", "", "filter by risk stage (low, medium, high)")
	journalListCmd.Flags().StringVar(&listRange, "range", "", "filter by date range (week, month, 3months)")
	journalListCmd.Flags().StringVar(&listType, "type", "", "filter by entry type")
	journalListCmd.Flags().StringVar(&listSearch, "search", "", "free-text search")
	journalListCmd.Flags().BoolVar(&listJSON, "json", false, "print entries as JSON")

	journalAddCmd.Flags().StringSliceVar(&addSymptoms, "symptoms", nil, "observed symptoms")
	journalAddCmd.Flags().StringVar(&addSeverity, "severity", "", "symptom severity (mild, moderate, severe)")
	journalAddCmd.Flags().StringVar(&addTriggers, "triggers", "", "suspected triggers")
	journalAddCmd.Flags().StringVar(&addNotes, "notes", "", "free-form notes")

	journalEditCmd.Flags().StringSliceVar(&editSymptoms, "symptoms", nil, "replace the symptom list")
	journalEditCmd.Flags().StringVar(&editSeverity, "severity", "", "replace the severity")
	journalEditCmd.Flags().StringVar(&editTriggers, "triggers", "", "replace the triggers")
	journalEditCmd.Flags().StringVar(&editNotes, "notes", "", "replace the notes")

	journalExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	journalImportCmd.Flags().IntVar(&importMaxPages, "pages", 10, "maximum PDF pages to read")

	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalAddCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalEditCmd)
	journalCmd.AddCommand(journalExportCmd)
	journalCmd.AddCommand(journalImportCmd)

	analyzeCmd.Flags().Float64Var(&analyzeDuration, "duration", 30, "recording duration in seconds")
	analyzeCmd.Flags().BoolVar(&analyzeWait, "wait", false, "wait for the result")
	analyzeListCmd.Flags().IntVar(&analyzeListLimit, "limit", 20, "maximum analyses to list")
	analyzeCmd.AddCommand(analyzeShowCmd)
	analyzeCmd.AddCommand(analyzeListCmd)

	coachCmd.AddCommand(coachListCmd)
	coachCmd.AddCommand(coachRunCmd)

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
