package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/phabmd/internal/conduit"
	"github.com/dshills/phabmd/internal/config"
	"github.com/dshills/phabmd/internal/output"
	"github.com/dshills/phabmd/internal/review"
	"github.com/dshills/phabmd/internal/session"
	"github.com/dshills/phabmd/internal/suggest"
	"github.com/dshills/phabmd/internal/webui"
)

// Extract flags
var (
	flagURL         string
	flagDiffID      string
	flagBaseURL     string
	flagToken       string
	flagOutput      string
	flagFormat      string
	flagIncludeDone bool
	flagEnvFile     string
)

func addExtractFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagURL, "url", "", "Revision URL (e.g. https://phabricator.example.com/D123)")
	cmd.Flags().StringVar(&flagDiffID, "diff-id", "", "Revision id (D123, d123 or 123)")
	cmd.Flags().StringVar(&flagBaseURL, "base-url", "", "Phabricator base URL (ignored with --url)")
	cmd.Flags().StringVar(&flagToken, "token", "", "Conduit API token (default: $PHABRICATOR_TOKEN)")
	cmd.Flags().StringVar(&flagOutput, "output", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (markdown, json, yaml)")
	cmd.Flags().BoolVar(&flagIncludeDone, "include-done", false, "Include inline comments marked done")
	cmd.Flags().StringVar(&flagEnvFile, "env-file", "", "Load environment variables from a .env file")
}

// revisionURLPattern finds the revision id in a Differential URL.
var revisionURLPattern = regexp.MustCompile(`/D(\d+)(?:\?|$|#)`)

// target is the revision an extract run works on.
type target struct {
	baseURL    string
	revisionID int
}

// parseRevisionURL splits a revision URL into its scheme://host base and
// revision id.
func parseRevisionURL(raw string) (target, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return target{}, fmt.Errorf("invalid revision URL: %s", raw)
	}
	m := revisionURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return target{}, fmt.Errorf("no revision id (D123) in URL: %s", raw)
	}
	id, err := strconv.Atoi(m[1])
	if err != nil || id <= 0 {
		return target{}, fmt.Errorf("invalid revision id in URL: %s", raw)
	}
	return target{baseURL: u.Scheme + "://" + u.Host, revisionID: id}, nil
}

// parseDiffID accepts "D123", "d123" or "123".
func parseDiffID(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "D") || strings.HasPrefix(s, "d") {
		s = s[1:]
	}
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid revision id: %q", raw)
	}
	return id, nil
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagBaseURL != "" {
		m["baseUrl"] = flagBaseURL
	}
	if flagToken != "" {
		m["token"] = flagToken
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagIncludeDone {
		m["includeDone"] = "true"
	}
	if flagLogLevel != "" {
		m["logLevel"] = flagLogLevel
	}
	return m
}

// resolveTarget decides which revision to extract. --url wins over
// --diff-id and also supplies the base URL.
func resolveTarget(cfg config.Config) (target, error) {
	switch {
	case flagURL != "":
		return parseRevisionURL(flagURL)
	case flagDiffID != "":
		id, err := parseDiffID(flagDiffID)
		if err != nil {
			return target{}, err
		}
		return target{baseURL: cfg.BaseURL, revisionID: id}, nil
	default:
		return target{}, errors.New("one of --url or --diff-id is required")
	}
}

// cookieDomain is the host session cookies are scoped to.
func cookieDomain(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return baseURL
	}
	return u.Hostname()
}

// newExtractor builds the full component graph for one instance.
func newExtractor(cfg config.Config, baseURL string, logger *slog.Logger) *review.Extractor {
	api := conduit.NewClient(baseURL, cfg.Token, cfg.Timeout(), logger)
	locator := session.NewLocator(cfg.Cookies, cfg.ProfileRoot, logger)
	web := webui.NewClient(baseURL, webui.Options{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout(),
		Scoring: webui.Scoring{
			SuggestionText: cfg.Scoring.SuggestionText,
			InlineView:     cfg.Scoring.InlineView,
			InlineComment:  cfg.Scoring.InlineComment,
		},
		ProbeOffsets: cfg.ProbeOffsets,
		Logger:       logger,
	})
	resolver := suggest.NewResolver(web, locator, api, suggest.Options{
		Domain:  cookieDomain(baseURL),
		Timeout: cfg.SuggestionTimeout(),
		Logger:  logger,
	})
	return review.NewExtractor(api, resolver, baseURL, logger)
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract review comments from a revision",
	Long: "Extract general comments, review actions and inline comments from a Differential revision. " +
		"Inline comments whose text is only visible in the web UI are recovered using your browser session.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(flagEnvFile); err != nil {
			return err
		}
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		tgt, err := resolveTarget(cfg)
		if err != nil {
			return err
		}
		if cfg.Token == "" {
			return errors.New("a Conduit API token is required (--token or PHABRICATOR_TOKEN)")
		}

		runExtract(cmd.Context(), cfg, tgt)
		return nil
	},
}

func runExtract(ctx context.Context, cfg config.Config, tgt target) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cfg.LogLevel)

	report, err := newExtractor(cfg, tgt.baseURL, logger).Run(ctx, tgt.revisionID, cfg.IncludeDone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if conduit.IsAuthError(err) {
			exitCode = ExitAuthError
			return
		}
		exitCode = ExitRuntimeError
		return
	}

	if err := output.WriteReport(report, cfg.Format, flagOutput); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	if flagOutput != "" {
		fmt.Fprintf(os.Stderr, "Comments extracted and saved to %s\n", flagOutput)
	}
}

func init() {
	addExtractFlags(extractCmd)
}
