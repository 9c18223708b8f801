package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sentinelnexus/guard/internal/api"
	"github.com/sentinelnexus/guard/internal/heuristic"
	"github.com/sentinelnexus/guard/internal/models"
	"github.com/sentinelnexus/guard/internal/session"
	"github.com/sentinelnexus/guard/internal/stream"
)

var (
	scanMode   string
	inputFile  string
	serverURL  string
	offline    bool
	restOnly   bool
	jsonOutput bool
	quiet      bool
	failOn     string
)

var scanCmd = &cobra.Command{
	Use:   "scan [input]",
	Short: "Scan code, an LLM prompt, PII text or a web target",
	Long: `Scan input for security issues. Streams results from the backend in real
time; if the backend is unreachable the scan degrades to the local offline
heuristic engine and the result is labeled accordingly.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanMode, "mode", "m", "code", "Scan mode: code, prompt, pii, web")
	scanCmd.Flags().StringVarP(&inputFile, "file", "f", "", "Read input from file ('-' for stdin)")
	scanCmd.Flags().StringVar(&serverURL, "server", "", "WebSocket scan endpoint (overrides config)")
	scanCmd.Flags().BoolVar(&offline, "offline", false, "Skip the backend entirely and use local heuristics")
	scanCmd.Flags().BoolVar(&restOnly, "rest", false, "Use the REST API instead of the streaming endpoint")
	scanCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the result as JSON")
	scanCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	scanCmd.Flags().StringVar(&failOn, "fail-on", "none", "Exit code 1 if findings at or above this severity: critical, high, medium, low, none")
	rootCmd.AddCommand(scanCmd)
}

func readInput(args []string) (string, error) {
	switch {
	case inputFile == "-" || (inputFile == "" && len(args) == 0):
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	case inputFile != "":
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return "", fmt.Errorf("read input file: %w", err)
		}
		return string(data), nil
	default:
		return strings.Join(args, " "), nil
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	mode, err := models.ParseMode(scanMode)
	if err != nil {
		return err
	}

	input, err := readInput(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("empty input")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.API.TimeoutSec)*time.Second)
	defer cancel()

	if offline {
		result := heuristic.Scan(input, mode)
		return printResult(&result)
	}

	client := api.NewClient(api.Config{
		BaseURL:   cfg.API.BaseURL,
		Token:     cfg.API.Token,
		ProjectID: cfg.API.ProjectID,
		Timeout:   time.Duration(cfg.API.TimeoutSec) * time.Second,
	})

	if mode == models.ModeWeb {
		return runWebScan(ctx, client, input)
	}

	if !restOnly {
		wsURL := serverURL
		if wsURL == "" {
			wsURL = cfg.API.WSURL
		}
		verdict, streamErr := runStreamScan(ctx, wsURL, mode, input)
		if streamErr == nil {
			return verdict
		}
		fmt.Fprintf(os.Stderr, "  [!] stream unavailable (%v), falling back to REST\n", streamErr)
	}

	result, err := client.ScanWithFallback(ctx, mode, input)
	if errors.Is(err, api.ErrUnauthorized) {
		return fmt.Errorf("unauthorized: check GUARD_API_TOKEN and log in again")
	}
	if err != nil {
		return err
	}
	return printResult(result)
}

// runStreamScan drives one streaming scan end to end. A non-nil streamErr
// means the stream could not be used at all and the caller should fall back;
// verdict is the final outcome of a stream that did run to a terminal state.
func runStreamScan(ctx context.Context, wsURL string, mode models.ScanMode, input string) (verdict, streamErr error) {
	conn, err := stream.Dial(ctx, wsURL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	sess := session.New()
	defer sess.Close()

	sess.Start()
	if err := conn.StartScan(mode, input); err != nil {
		return nil, err
	}

	var sp *spinner.Spinner
	if !quiet && !jsonOutput {
		sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		sp.Suffix = " Scanning..."
		sp.Start()
	}

	for ev := range conn.Events() {
		sess.Apply(ev)

		switch e := ev.(type) {
		case models.ProgressEvent:
			if sp != nil {
				sp.Suffix = fmt.Sprintf(" %d%% %s", e.Pct, e.Message)
			}
		case models.FindingEvent:
			if sp != nil {
				sp.Suffix = fmt.Sprintf(" %d findings so far...", len(sess.Snapshot().Findings))
			}
		case models.CompleteEvent, models.ErrorEvent:
		}

		snap := sess.Snapshot()
		if snap.State == session.StateComplete || snap.State == session.StateErrored {
			break
		}
	}

	if sp != nil {
		sp.Stop()
	}

	snap := sess.Snapshot()
	switch snap.State {
	case session.StateComplete:
		return printStreamResult(snap, mode), nil
	case session.StateErrored:
		// partial findings stay visible
		printStreamResult(snap, mode)
		return fmt.Errorf("scan failed: %s", snap.Err), nil
	default:
		// соединение оборвалось до терминального события
		return nil, fmt.Errorf("stream closed mid-scan")
	}
}

func runWebScan(ctx context.Context, client *api.Client, target string) error {
	ack, err := client.ScanWeb(ctx, target, nil)

	var transportErr *api.TransportError
	if errors.As(err, &transportErr) {
		fmt.Fprintf(os.Stderr, "  [!] backend unreachable (%v), inspecting input locally\n", transportErr)
		result := heuristic.Scan(target, models.ModeWeb)
		return printResult(&result)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(ack)
	}
	fmt.Printf("Web scan queued: status=%s task=%s\n", ack.Status, ack.TaskID)
	return nil
}

func printResult(result *models.ScanResult) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
		return failOnExceeded(result.Findings)
	}

	if result.Offline {
		color.New(color.FgYellow).Println("⚠ offline mode — local heuristic result, not a backend scan")
	}

	scoreColor := severityColorForLevel(result.RiskLevel)
	fmt.Printf("Risk score: %s (%s)\n", scoreColor.Sprintf("%d/100", result.OverallRiskScore), result.RiskLevel)
	printBreakdown(result.FindingsBySeverity)
	printFindings(result.Findings)

	if len(result.ComplianceVerdicts) > 0 {
		fmt.Println("\nCompliance (illustrative):")
		names := make([]string, 0, len(result.ComplianceVerdicts))
		for name := range result.ComplianceVerdicts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := result.ComplianceVerdicts[name]
			mark := color.GreenString("[+]")
			if v.Status != models.ComplianceCompliant {
				mark = color.YellowString("[!]")
			}
			fmt.Printf("  %s %-10s %s (%d%%)\n", mark, name, v.Status, v.Score)
		}
	}

	return failOnExceeded(result.Findings)
}

func printStreamResult(snap session.Snapshot, mode models.ScanMode) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			State    session.ScanState        `json:"state"`
			Progress int                      `json:"progress"`
			Mode     models.ScanMode          `json:"scan_mode"`
			Total    int                      `json:"total_findings"`
			Counts   models.SeverityBreakdown `json:"findings_by_severity"`
			Findings []models.Finding         `json:"findings"`
			Error    string                   `json:"error,omitempty"`
		}{snap.State, snap.Progress, mode, len(snap.Findings), models.CountBySeverity(snap.Findings), snap.Findings, snap.Err}); err != nil {
			return err
		}
		return failOnExceeded(snap.Findings)
	}

	printBreakdown(models.CountBySeverity(snap.Findings))
	printFindings(snap.Findings)
	return failOnExceeded(snap.Findings)
}

func printBreakdown(b models.SeverityBreakdown) {
	fmt.Printf("Findings: %s critical, %s high, %s medium, %s low, %d info\n",
		color.RedString("%d", b.Critical),
		color.New(color.FgRed).Sprintf("%d", b.High),
		color.YellowString("%d", b.Medium),
		color.BlueString("%d", b.Low),
		b.Info)
}

func printFindings(findings []models.Finding) {
	for _, f := range findings {
		c := severityColor(f.Severity)
		fmt.Printf("  %s %s — %s\n", c.Sprintf("[%s]", strings.ToUpper(string(f.Severity))), f.Title, f.Description)
		if f.Location != "" {
			fmt.Printf("         at %s\n", f.Location)
		}
		if f.Evidence != "" {
			fmt.Printf("         evidence: %s\n", f.Evidence)
		}
	}
	if len(findings) == 0 {
		color.New(color.FgGreen).Println("  No findings — clean scan")
	}
}

func severityColor(s models.Severity) *color.Color {
	switch s {
	case models.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case models.SeverityHigh:
		return color.New(color.FgRed)
	case models.SeverityMedium:
		return color.New(color.FgYellow)
	case models.SeverityLow:
		return color.New(color.FgBlue)
	default:
		return color.New(color.Faint)
	}
}

func severityColorForLevel(level models.RiskLevel) *color.Color {
	switch level {
	case models.RiskCritical:
		return color.New(color.FgRed, color.Bold)
	case models.RiskHigh:
		return color.New(color.FgRed)
	case models.RiskMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func failOnExceeded(findings []models.Finding) error {
	if strings.ToLower(failOn) == "none" || failOn == "" {
		return nil
	}
	threshold := models.ParseSeverity(strings.ToLower(failOn)).Rank()
	for _, f := range findings {
		if f.Severity.Rank() >= threshold {
			os.Exit(1)
		}
	}
	return nil
}
