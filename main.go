package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lmittmann/tint"

	"go.parlo.dev/parlo/config"
	"go.parlo.dev/parlo/internal/types"
	"go.parlo.dev/parlo/report"
	"go.parlo.dev/parlo/session"
	"go.parlo.dev/parlo/transcript"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	agentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	partialStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	meterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	scoreStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	reportStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
)

func main() {
	var (
		modeFlag     = flag.String("mode", "", "practice mode: drill, roleplay, or free-talk")
		scenarioFlag = flag.String("scenario", "", "roleplay scenario: restaurant, directions, or interview")
		voiceFlag    = flag.String("voice", "", "agent voice name")
		meterFlag    = flag.Bool("meter", false, "show a microphone loudness meter")
		debugFlag    = flag.Bool("debug", false, "verbose logging")
		versionFlag  = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("parlo %s (%s, %s)\n", version, commit, date)
		return
	}

	level := slog.LevelInfo
	if *debugFlag {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))

	if err := run(*modeFlag, *scenarioFlag, *voiceFlag, *meterFlag); err != nil {
		slog.Error("parlo", "error", err)
		os.Exit(1)
	}
}

func run(modeFlag, scenarioFlag, voiceFlag string, meter bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if modeFlag != "" {
		mode, err := types.ParseMode(modeFlag)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}
	if scenarioFlag != "" {
		cfg.Scenario = types.Scenario(scenarioFlag)
	}
	if voiceFlag != "" {
		cfg.Voice = voiceFlag
	}
	if key := os.Getenv("PARLO_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("no API key: set PARLO_API_KEY or api_key in the config file")
	}

	s := session.New(session.Config{
		Mode:     cfg.Mode,
		Scenario: cfg.Scenario,
		Voice:    cfg.Voice,
		URL:      cfg.AgentURL,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = s.Connect(ctx)
	cancel()
	if err != nil {
		return err
	}
	slog.Info("session open", "mode", cfg.Mode, "scenario", cfg.Scenario)
	fmt.Println("Speak when ready. Ctrl-C ends the session.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		signal.Stop(sigCh)
		s.Disconnect()
	}()

	var sessionErr error
	for ev := range s.Events() {
		switch e := ev.(type) {
		case session.MessageEvent:
			renderMessage(e.Message)
		case session.LevelEvent:
			if meter {
				renderMeter(e.RMS)
			}
		case session.SpeakingEvent:
			if meter {
				renderSpeaking(e.Active)
			}
		case session.ErrorEvent:
			sessionErr = e.Err
		case session.Closed:
			fmt.Println()
		}
	}
	if sessionErr != nil {
		return sessionErr
	}

	st := s.Stats()
	fmt.Printf("Session over: %s, you spoke %d times, the agent %d.\n",
		st.Duration.Round(time.Second), st.UserMessages, st.AgentMessages)

	return grade(cfg, s.ExportTranscript())
}

// renderMessage reprints the growing message on one line until it seals.
func renderMessage(m transcript.Message) {
	label := userStyle.Render("you")
	if m.Role == transcript.RoleAgent {
		label = agentStyle.Render("agent")
	}
	text := m.Text
	if !m.Complete {
		text = partialStyle.Render(text)
	}
	fmt.Printf("\r\033[K%s  %s", label, text)
	if m.Complete {
		fmt.Println()
	}
}

func renderMeter(rms float64) {
	const width = 20
	filled := int(rms * width)
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	fmt.Fprintf(os.Stderr, "\r%s", meterStyle.Render(bar))
}

func renderSpeaking(active bool) {
	if active {
		fmt.Fprintf(os.Stderr, "\r%s\n", meterStyle.Render("● speaking"))
		return
	}
	fmt.Fprintf(os.Stderr, "\r\033[K")
}

func grade(cfg *config.Config, text string) error {
	if strings.TrimSpace(text) == "" {
		fmt.Println("Nothing was said, so there is nothing to grade.")
		return nil
	}

	key := cfg.GraderKey
	if key == "" {
		key = cfg.APIKey
	}
	grader := report.NewOpenAIGrader(key, "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	r, err := grader.Grade(ctx, text)
	if err != nil {
		return fmt.Errorf("grade session: %w", err)
	}
	fmt.Println(reportStyle.Render(formatReport(r)))
	return nil
}

func formatReport(r *report.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %s\n", scoreStyle.Render(fmt.Sprintf("%2d/10", r.Fluency.Score)), "fluency   ", r.Fluency.Comment)
	fmt.Fprintf(&b, "%s %s  %s\n", scoreStyle.Render(fmt.Sprintf("%2d/10", r.Vocabulary.Score)), "vocabulary", r.Vocabulary.Comment)
	fmt.Fprintf(&b, "%s %s  %s\n", scoreStyle.Render(fmt.Sprintf("%2d/10", r.Grammar.Score)), "grammar   ", r.Grammar.Comment)
	b.WriteString("\n")
	b.WriteString(r.Overall)
	return b.String()
}
