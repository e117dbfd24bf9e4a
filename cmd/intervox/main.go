package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/intervox/intervox/internal/catalog"
	"github.com/intervox/intervox/internal/coordinator"
	"github.com/intervox/intervox/internal/directory"
	"github.com/intervox/intervox/internal/grader"
	"github.com/intervox/intervox/internal/handler"
	appI18n "github.com/intervox/intervox/internal/i18n"
	"github.com/intervox/intervox/internal/ledger"
	"github.com/intervox/intervox/internal/model"
	"github.com/intervox/intervox/internal/storage"
	"github.com/intervox/intervox/internal/tasklog"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "intervox",
		Short: "Interview management backend",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), statsCmd(), cleanupCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `intervox --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "intervox.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Notice language (en, ru)")
	f.Bool("seed", true, "Seed sample data on first run")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("llm-url", "", "OpenAI-compatible API base URL for auto-grading (empty disables)")
	f.String("llm-key", "", "API key for the grading endpoint")
	f.String("llm-model", "llama3.2", "Chat model for grading")
	f.String("llm-transcribe-model", "whisper-1", "Transcription model for answer audio")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export submissions joined with interview content as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "intervox.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print task and log statistics as JSON",
		RunE:  runStats,
	}
	f := cmd.Flags()
	f.String("db", "intervox.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func cleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove old completed log tasks and expired sessions",
		RunE:  runCleanup,
	}
	f := cmd.Flags()
	f.String("db", "intervox.db", "SQLite database path")
	f.Int("max-age-days", 30, "Retention window for completed log tasks")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("INTERVOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("intervox")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/intervox")
	v.AddConfigPath("/etc/intervox")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// services wires the full dependency graph over one open store.
type services struct {
	kv       *storage.Store
	users    *directory.Directory
	sessions *directory.Sessions
	catalog  *catalog.Catalog
	ledger   *ledger.Ledger
	tasklog  *tasklog.Log
	coord    *coordinator.Coordinator
}

func openServices(dbPath string, g grader.Grader) (*services, error) {
	kv, err := storage.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	cat := catalog.New(kv)
	led := ledger.New(kv)
	log := tasklog.New(kv)
	return &services{
		kv:       kv,
		users:    directory.New(kv),
		sessions: directory.NewSessions(kv),
		catalog:  cat,
		ledger:   led,
		tasklog:  log,
		coord:    coordinator.New(kv, cat, led, log, g),
	}, nil
}

func (s *services) seed() error {
	if err := s.users.Seed(); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	if err := s.catalog.Seed(); err != nil {
		return fmt.Errorf("seed interviews: %w", err)
	}
	if err := s.ledger.Seed(); err != nil {
		return fmt.Errorf("seed submissions: %w", err)
	}
	if err := s.tasklog.Seed(); err != nil {
		return fmt.Errorf("seed tasks: %w", err)
	}
	if err := s.coord.Seed(); err != nil {
		return fmt.Errorf("seed interview tasks: %w", err)
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	// Optional auto-grader. Without an endpoint, tasks with autoGrade on
	// simply stay unreviewed until a reviewer scores them.
	var g grader.Grader
	if url := v.GetString("llm-url"); url != "" {
		og := grader.NewOpenAI(url, v.GetString("llm-key"),
			v.GetString("llm-model"), v.GetString("llm-transcribe-model"))
		if err := og.Ping(context.Background()); err != nil {
			return fmt.Errorf("grading endpoint health check: %w", err)
		}
		slog.Info("grading endpoint OK", "url", url, "model", v.GetString("llm-model"))
		g = og
	}

	svc, err := openServices(v.GetString("db"), g)
	if err != nil {
		return err
	}
	defer svc.kv.Close()

	if v.GetBool("seed") {
		if err := svc.seed(); err != nil {
			return err
		}
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Background maintenance: retention for the task log, expiry for
	// auth sessions.
	c := cron.New()
	if _, err := c.AddFunc("@daily", func() {
		if _, err := svc.tasklog.Cleanup(tasklog.DefaultMaxAge); err != nil {
			slog.Error("scheduled task cleanup failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule task cleanup: %w", err)
	}
	if _, err := c.AddFunc("@hourly", func() {
		removed, err := svc.sessions.Sweep()
		if err != nil {
			slog.Error("session sweep failed", "error", err)
			return
		}
		if removed > 0 {
			slog.Info("swept expired sessions", "removed", removed)
		}
	}); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	c.Start()
	defer c.Stop()

	h := handler.New(svc.users, svc.sessions, svc.catalog, svc.ledger, svc.tasklog, svc.coord,
		handler.Config{SecureCookies: v.GetBool("secure-cookies")})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"lang", lang,
		"auto_grading", g != nil,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	svc, err := openServices(v.GetString("db"), nil)
	if err != nil {
		return err
	}
	defer svc.kv.Close()

	export := model.ExportFile{
		GeneratedAt: time.Now().UTC(),
		Results:     buildResults(svc.ledger.List(), svc.catalog),
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

// buildResults joins submissions with the interview content they answered.
// Submissions whose interview was deleted keep their answers, with empty
// question text.
func buildResults(subs []model.Submission, cat *catalog.Catalog) []model.SubmissionResult {
	results := make([]model.SubmissionResult, 0, len(subs))
	for _, sub := range subs {
		result := model.SubmissionResult{
			SubmissionID: sub.ID,
			InterviewID:  sub.InterviewID,
			CandidateID:  sub.CandidateID,
			SubmittedAt:  sub.SubmittedAt,
			Review:       sub.Review,
		}
		var questions []string
		if iv := cat.Get(sub.InterviewID); iv != nil {
			result.Title = iv.Title
			questions = iv.Questions
		}
		for _, a := range sub.Answers {
			ar := model.AnswerResult{
				QIndex:     a.QIndex,
				URI:        a.URI,
				RecordedAt: a.RecordedAt,
			}
			if a.QIndex >= 0 && a.QIndex < len(questions) {
				ar.Question = questions[a.QIndex]
			}
			result.Answers = append(result.Answers, ar)
		}
		results = append(results, result)
	}
	return results
}

func runStats(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	svc, err := openServices(v.GetString("db"), nil)
	if err != nil {
		return err
	}
	defer svc.kv.Close()

	stats := struct {
		Tasks model.TaskStats `json:"tasks"`
		Log   model.LogStats  `json:"log"`
	}{
		Tasks: svc.coord.Statistics(),
		Log:   svc.tasklog.Stats(),
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	svc, err := openServices(v.GetString("db"), nil)
	if err != nil {
		return err
	}
	defer svc.kv.Close()

	maxAge := time.Duration(v.GetInt("max-age-days")) * 24 * time.Hour
	removed, err := svc.tasklog.Cleanup(maxAge)
	if err != nil {
		return fmt.Errorf("task cleanup: %w", err)
	}
	swept, err := svc.sessions.Sweep()
	if err != nil {
		return fmt.Errorf("session sweep: %w", err)
	}

	slog.Info("cleanup complete", "tasks_removed", removed, "sessions_swept", swept)
	return nil
}
