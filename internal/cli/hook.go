package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	hookServer  string
	hookTimeout time.Duration
)

var hookCmd = &cobra.Command{
	Use:       "hook <stop|pre-speak|post-tool|pre-tool>",
	Short:     "Ask the coordinator for a hook decision and print it as JSON",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"stop", "pre-speak", "post-tool", "pre-tool"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), hookTimeout)
		defer cancel()
		return runHook(ctx, baseURL(hookServer), args[0], cmd.OutOrStdout())
	},
}

func init() {
	hookCmd.Flags().StringVar(&hookServer, "server", "", "coordinator base URL (default from config)")
	hookCmd.Flags().DurationVar(&hookTimeout, "timeout", 5*time.Minute, "give up and approve after this long")
}

// runHook posts to the hook endpoint and writes the decision. Any transport
// failure results in an approve so the agent is never stuck on the coordinator.
func runHook(ctx context.Context, base, name string, out io.Writer) error {
	url := strings.TrimRight(base, "/") + "/api/hooks/" + name
	decision, err := fetchDecision(ctx, url)
	if err != nil {
		log.Printf("[hook] %s: %v; approving", name, err)
		decision = map[string]any{"decision": "approve"}
	}
	return json.NewEncoder(out).Encode(decision)
}

func fetchDecision(ctx context.Context, url string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	var d map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if _, ok := d["decision"].(string); !ok {
		return nil, fmt.Errorf("response missing decision")
	}
	return d, nil
}
