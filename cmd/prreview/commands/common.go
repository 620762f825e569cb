package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/roasbeef/prreview/internal/build"
	"github.com/roasbeef/prreview/internal/gateway"
)

// resolveToken returns the GitHub token from the flag or the environment.
func resolveToken() (string, error) {
	if githubToken != "" {
		return githubToken, nil
	}
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		return tok, nil
	}

	return "", fmt.Errorf("no GitHub token: pass --token or set " +
		"$GITHUB_TOKEN")
}

// parseRepo splits an owner/name repository argument.
func parseRepo(repo string) (string, string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("invalid repository %q: want "+
			"owner/name", repo)
	}

	return owner, name, nil
}

// setupLogging builds the process logger from the global flags.
func setupLogging() (*slog.Logger, func(), error) {
	return build.SetupLoggers(build.LogConfig{
		Level:  logLevel,
		LogDir: logDir,
	})
}

// newGateway builds the GitHub gateway from the global flags.
func newGateway(log *slog.Logger) (*gateway.GitHubGateway, error) {
	token, err := resolveToken()
	if err != nil {
		return nil, err
	}

	return gateway.NewGitHubGateway(gateway.Config{
		Token: token,
	}, log), nil
}

// outputJSON prints the value as indented JSON on stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
