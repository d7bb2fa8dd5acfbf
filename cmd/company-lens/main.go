package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/xyenon/company-lens/internal/chat"
	"github.com/xyenon/company-lens/internal/config"
	"github.com/xyenon/company-lens/internal/debug"
	"github.com/xyenon/company-lens/internal/extract"
	"github.com/xyenon/company-lens/internal/paths"
	"github.com/xyenon/company-lens/internal/present"
	"github.com/xyenon/company-lens/internal/profile"
	"github.com/xyenon/company-lens/internal/prompt"
	"github.com/xyenon/company-lens/internal/ui"
	"github.com/xyenon/company-lens/pkg"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	OS        = runtime.GOOS
	Arch      = runtime.GOARCH
)

var (
	dbg        bool
	configPath string

	envelope            bool
	fullContentFallback bool
	inputFile           string

	topicName   string
	summary     bool
	raw         bool
	retries     int
	topicNames  []string
	concurrency int

	logFile    string
	rotateSize string
)

var (
	exitFunc = os.Exit

	newCompleter = func(cfg config.Config) (chat.Completer, error) {
		return chat.NewClient(cfg)
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	debug.Close()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitFunc(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "company-lens",
		Short:         "Structured company profiles from a chat model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&dbg, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default "+paths.GetConfigFile()+")")

	extractCmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract the JSON payload from a model reply on stdin",
		Args:  cobra.NoArgs,
		RunE:  runExtract,
	}
	extractCmd.Flags().BoolVar(&envelope, "envelope", false, "Input is a full chat-completion response body")
	extractCmd.Flags().BoolVar(&fullContentFallback, "full-content-fallback", false, "Decode the whole message content when it has no fenced block")
	extractCmd.Flags().StringVarP(&inputFile, "file", "f", "", "Read the reply from a file instead of stdin")

	fetchCmd := &cobra.Command{
		Use:   "fetch <company>",
		Short: "Ask the model about one topic and print the extracted JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runFetch,
	}
	fetchCmd.Flags().StringVarP(&topicName, "topic", "t", "core", "Topic to fetch ("+strings.Join(prompt.Names(), ", ")+")")
	fetchCmd.Flags().BoolVar(&summary, "summary", false, "Print the shape of each section instead of the JSON")
	fetchCmd.Flags().BoolVar(&raw, "raw", false, "Print the unparsed reply")
	fetchCmd.Flags().IntVar(&retries, "retries", config.DefaultRetries, "Extra requests when a reply cannot be extracted")
	fetchCmd.Flags().BoolVar(&fullContentFallback, "full-content-fallback", false, "Decode the whole reply when it has no fenced block")

	profileCmd := &cobra.Command{
		Use:   "profile <company>",
		Short: "Fetch several topics concurrently and print one JSON document",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runProfile,
	}
	profileCmd.Flags().StringSliceVar(&topicNames, "topics", prompt.Names(), "Topics to fetch")
	profileCmd.Flags().IntVar(&concurrency, "concurrency", config.DefaultConcurrency, "Topics fetched at the same time")
	profileCmd.Flags().IntVar(&retries, "retries", config.DefaultRetries, "Extra requests when a reply cannot be extracted")
	profileCmd.Flags().BoolVar(&fullContentFallback, "full-content-fallback", false, "Decode the whole reply when it has no fenced block")

	topicsCmd := &cobra.Command{
		Use:   "topics",
		Short: "List the available topics",
		Args:  cobra.NoArgs,
		Run:   runTopics,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}
	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration with the API key masked",
			Args:  cobra.NoArgs,
			RunE:  runConfigShow,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), resolvedConfigPath())
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a starter config file",
			Args:  cobra.NoArgs,
			RunE:  runConfigInit,
		},
	)

	rotateCmd := &cobra.Command{
		Use:   "rotate-logs",
		Short: "Rotate the debug log",
		Args:  cobra.NoArgs,
		RunE:  runRotateLogs,
	}
	rotateCmd.Flags().StringVarP(&logFile, "log-file", "l", debug.Path(), "Log file to rotate")
	rotateCmd.Flags().StringVar(&rotateSize, "if-larger-than", "", "Only rotate when the file is at least this size (e.g. 5MB)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "company-lens %s\n", Version)
			fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
			fmt.Fprintf(out, "OS: %s\n", OS)
			fmt.Fprintf(out, "Arch: %s\n", Arch)
		},
	}

	rootCmd.AddCommand(extractCmd, fetchCmd, profileCmd, topicsCmd, configCmd, rotateCmd, versionCmd)
	return rootCmd
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return paths.GetConfigFile()
}

// loadConfig merges the config file, the environment and any flags the user
// set on cmd, then turns on debug logging if asked.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("retries") {
		cfg.Retries = retries
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = concurrency
	}
	if flags.Changed("full-content-fallback") {
		cfg.FullContentFallback = fullContentFallback
	}
	if dbg {
		cfg.Debug = true
	}
	debug.Enable(cfg.Debug)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newFetcher(cfg config.Config) (*profile.Fetcher, error) {
	client, err := newCompleter(cfg)
	if err != nil {
		return nil, err
	}
	return &profile.Fetcher{
		Client:              client,
		Retries:             cfg.Retries,
		Concurrency:         cfg.Concurrency,
		FullContentFallback: cfg.FullContentFallback,
	}, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	input, err := readInput(cmd.InOrStdin(), inputFile)
	if err != nil {
		return err
	}

	payload, err := extract.Extract(input, extract.Options{
		Envelope:            envelope,
		FullContentFallback: cfg.FullContentFallback,
	})
	if err != nil {
		debug.Log("Extraction failed", map[string]any{
			"envelope": envelope,
			"kind":     extract.KindOf(err).String(),
			"error":    err,
		})
		reportCandidate(cmd.ErrOrStderr(), err)
		return err
	}

	return present.JSON(cmd.OutOrStdout(), payload, ui.IsTerminal(cmd.OutOrStdout()))
}

func readInput(stdin io.Reader, file string) (string, error) {
	if file != "" && file != "-" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	}

	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errors.New("refusing to read a reply from an interactive terminal; pipe one in or use --file")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// reportCandidate shows the text that failed to decode, when there is one.
func reportCandidate(w io.Writer, err error) {
	var xerr *extract.Error
	if errors.As(err, &xerr) && xerr.Kind == extract.KindJSONDecode {
		fmt.Fprintf(w, "Candidate:\n%s\n", xerr.Candidate)
	}
}

func companyName(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runFetch(cmd *cobra.Command, args []string) error {
	topic, err := prompt.Lookup(topicName)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if raw {
		cfg.Retries = 0
	}
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return err
	}

	company := companyName(args)
	sp := ui.NewSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Asking %s about %s (%s)", cfg.Model, company, topic.Name))
	sp.Start()
	section, err := fetcher.Fetch(cmd.Context(), company, topic)

	out := cmd.OutOrStdout()
	if raw {
		if err != nil && extract.KindOf(err) == 0 {
			sp.Fail(topic.Name)
			return err
		}
		sp.Success(topic.Name)
		_, werr := io.WriteString(out, strings.TrimRight(section.Reply.Content, "\n")+"\n")
		return werr
	}

	if err != nil {
		sp.Fail(fmt.Sprintf("%s (%d attempts)", topic.Name, section.Attempts))
		reportCandidate(cmd.ErrOrStderr(), err)
		return err
	}
	sp.Success(topic.Name)

	debug.Log("Fetched topic", map[string]any{
		"company":  company,
		"topic":    topic.Name,
		"attempts": section.Attempts,
		"model":    section.Reply.Model,
	})

	if summary {
		return present.Summary(out, section)
	}
	return present.JSON(out, section.Payload, ui.IsTerminal(out))
}

func runProfile(cmd *cobra.Command, args []string) error {
	var topics []prompt.Topic
	for _, name := range topicNames {
		topic, err := prompt.Lookup(name)
		if err != nil {
			return err
		}
		topics = append(topics, topic)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return err
	}

	company := companyName(args)
	sp := ui.NewSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Profiling %s (0/%d topics)", company, len(topics)))
	var done atomic.Int32
	fetcher.OnSection = func(profile.Section) {
		sp.Update(fmt.Sprintf("Profiling %s (%d/%d topics)", company, done.Add(1), len(topics)))
	}
	sp.Start()
	p, err := fetcher.FetchAll(cmd.Context(), company, topics)
	if err != nil {
		sp.Fail(company)
		if ferr := present.Failures(cmd.ErrOrStderr(), p); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}
	sp.Success(fmt.Sprintf("%s: %d of %d topics", company, len(topics)-len(p.Failed()), len(topics)))

	out := cmd.OutOrStdout()
	if err := present.Profile(out, p, ui.IsTerminal(out)); err != nil {
		return err
	}
	return present.Failures(cmd.ErrOrStderr(), p)
}

func runTopics(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	for _, t := range prompt.Topics() {
		fmt.Fprintf(out, "%-10s %s\n", t.Name, t.Description)
		fmt.Fprintf(out, "%-10s keys: %s\n", "", strings.Join(t.Keys, ", "))
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	data, err := cfg.Redacted().Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := resolvedConfigPath()
	if err := config.WriteStarter(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote starter config to %s\n", path)
	return nil
}

func runRotateLogs(cmd *cobra.Command, args []string) error {
	debug.Enable(dbg)
	debug.Log("Rotating log file", map[string]any{
		"log_file":       logFile,
		"if_larger_than": rotateSize,
	})

	if rotateSize == "" {
		if err := debug.Rotator.ForceRotate(logFile); err != nil {
			return fmt.Errorf("failed to rotate log file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Successfully rotated log file: %s\n", logFile)
		return nil
	}

	size, err := pkg.ParseSizeString(rotateSize)
	if err != nil {
		return err
	}
	info, err := os.Stat(logFile)
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() < size {
		fmt.Fprintf(cmd.OutOrStdout(), "Log file is smaller than %s, nothing to do: %s\n", rotateSize, logFile)
		return nil
	}
	if err := debug.Rotator.ForceRotate(logFile); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Successfully rotated log file: %s\n", logFile)
	return nil
}
