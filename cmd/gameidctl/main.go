// Command gameidctl is a command-line client for the game ID registry server.
//
// Examples:
//
//	gameidctl create            # random short game ID
//	gameidctl create lobby-7
//	gameidctl check lobby-7     # join as second player
//	gameidctl log lobby-7
//	gameidctl --server http://host:3001 list
package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/gameids/api"
	"github.com/wricardo/mcp-training/gameids/game/service"
)

const (
	defaultServer = "http://localhost:3001"

	// Attempts at a random game ID before giving up on conflicts
	maxCreateAttempts = 5
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps API failures to distinct exit codes so scripts can branch
// on "not found" or "full" without parsing output.
func exitCode(err error) int {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return 1
	}
	switch apiErr.StatusCode {
	case http.StatusBadRequest:
		return 2
	case http.StatusForbidden:
		return 3
	case http.StatusNotFound:
		return 4
	case http.StatusConflict:
		return 5
	default:
		return 1
	}
}

// newApp builds the command tree writing results to w
func newApp(w io.Writer) *cli.Command {
	return &cli.Command{
		Name:                  "gameidctl",
		Usage:                 "manage two-player game IDs on a registry server",
		Version:               "1.0.0",
		Writer:                w,
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   defaultServer,
				Usage:   "registry server base URL",
				Sources: cli.EnvVars("GAMEID_SERVER"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 10 * time.Second,
				Usage: "per-request timeout",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print raw JSON responses",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "register a game ID (random when omitted)",
				ArgsUsage: "[gameId]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "uuid", Usage: "generate a UUID instead of a short ID"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, ctx, cancel := clientFor(ctx, cmd)
					defer cancel()

					resp, err := createGameID(ctx, client, cmd.Args().First(), cmd.Bool("uuid"))
					if err != nil {
						return err
					}
					return output(w, cmd, resp, func() {
						fmt.Fprintf(w, "%s\n", resp.GameID)
					})
				},
			},
			{
				Name:      "check",
				Usage:     "validate a game ID and join it as second player",
				ArgsUsage: "<gameId>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					gameID, err := requireGameID(cmd)
					if err != nil {
						return err
					}
					client, ctx, cancel := clientFor(ctx, cmd)
					defer cancel()

					resp, err := client.Check(ctx, gameID)
					if err != nil {
						return err
					}
					return output(w, cmd, resp, func() {
						fmt.Fprintf(w, "%s: %s (%d/2)\n", resp.GameID, resp.Message, resp.Players)
					})
				},
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "remove a game ID before it expires",
				ArgsUsage: "<gameId>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					gameID, err := requireGameID(cmd)
					if err != nil {
						return err
					}
					client, ctx, cancel := clientFor(ctx, cmd)
					defer cancel()

					resp, err := client.Remove(ctx, gameID)
					if err != nil {
						return err
					}
					return output(w, cmd, resp, func() {
						fmt.Fprintf(w, "%s: %s\n", gameID, resp.Message)
					})
				},
			},
			{
				Name:      "log",
				Usage:     "print the activity log of a live game ID",
				ArgsUsage: "<gameId>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					gameID, err := requireGameID(cmd)
					if err != nil {
						return err
					}
					client, ctx, cancel := clientFor(ctx, cmd)
					defer cancel()

					resp, err := client.Log(ctx, gameID)
					if err != nil {
						return err
					}
					return output(w, cmd, resp, func() {
						for _, entry := range resp.Log {
							fmt.Fprintf(w, "%s  %s\n", entry.Timestamp.Format(time.RFC3339Nano), entry.Message)
						}
					})
				},
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "list live game IDs",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, ctx, cancel := clientFor(ctx, cmd)
					defer cancel()

					resp, err := client.List(ctx)
					if err != nil {
						return err
					}
					return output(w, cmd, resp, func() {
						printGames(w, resp.Games)
					})
				},
			},
			{
				Name:  "stats",
				Usage: "print registry counters",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, ctx, cancel := clientFor(ctx, cmd)
					defer cancel()

					stats, err := client.Stats(ctx)
					if err != nil {
						return err
					}
					return output(w, cmd, stats, func() {
						fmt.Fprintf(w, "active=%d full=%d created=%d joined=%d removed=%d expired=%d rejected=%d ttl=%s\n",
							stats.Active, stats.Full, stats.Created, stats.Joined,
							stats.Removed, stats.Expired, stats.Rejected, stats.TTL)
					})
				},
			},
			{
				Name:      "archive",
				Usage:     "print the archived final log of an ended game ID",
				ArgsUsage: "<gameId>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "list", Usage: "list archived game IDs instead"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Bool("list") {
						client, ctx, cancel := clientFor(ctx, cmd)
						defer cancel()

						resp, err := client.ArchiveList(ctx)
						if err != nil {
							return err
						}
						return output(w, cmd, resp, func() {
							for _, id := range resp.GameIDs {
								fmt.Fprintln(w, id)
							}
						})
					}

					gameID, err := requireGameID(cmd)
					if err != nil {
						return err
					}
					client, ctx, cancel := clientFor(ctx, cmd)
					defer cancel()

					archived, err := client.Archive(ctx, gameID)
					if err != nil {
						return err
					}
					return output(w, cmd, archived, func() {
						fmt.Fprintf(w, "%s ended %s (%s, %d players)\n",
							archived.GameID, archived.EndedAt.Format(time.RFC3339), archived.Reason, archived.Players)
						for _, entry := range archived.Log {
							fmt.Fprintf(w, "%s  %s\n", entry.Timestamp.Format(time.RFC3339Nano), entry.Message)
						}
					})
				},
			},
		},
	}
}

// clientFor returns an API client for --server and a context bounded by --timeout
func clientFor(ctx context.Context, cmd *cli.Command) (*api.Client, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	return api.NewClient(cmd.String("server")), ctx, cancel
}

func requireGameID(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("%s requires exactly one gameId argument", cmd.Name)
	}
	return cmd.Args().First(), nil
}

// createGameID registers gameID, or a generated one when it is empty. Only
// generated IDs are retried on conflict.
func createGameID(ctx context.Context, client *api.Client, gameID string, useUUID bool) (*api.CreateResponse, error) {
	if gameID != "" {
		return client.Create(ctx, gameID)
	}

	var lastErr error
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		candidate, err := generateGameID(useUUID)
		if err != nil {
			return nil, err
		}

		resp, err := client.Create(ctx, candidate)
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			lastErr = err
			continue
		}
		return resp, err
	}
	return nil, fmt.Errorf("no free game ID after %d attempts: %w", maxCreateAttempts, lastErr)
}

// generateGameID returns a short uppercase hex code, or a UUID
func generateGameID(useUUID bool) (string, error) {
	if useUUID {
		return uuid.NewString(), nil
	}
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate game ID: %w", err)
	}
	return fmt.Sprintf("%X", buf), nil
}

// output prints v as JSON with --json, otherwise runs the text printer
func output(w io.Writer, cmd *cli.Command, v interface{}, text func()) error {
	if cmd.Bool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text()
	return nil
}

func printGames(w io.Writer, games []*service.GameInfo) {
	if len(games) == 0 {
		fmt.Fprintln(w, "no live game IDs")
		return
	}
	for _, g := range games {
		status := "waiting"
		if g.Full {
			status = "full"
		}
		fmt.Fprintf(w, "%-20s %d/2 %-7s expires in %s\n", g.GameID, g.Players, status, g.ExpiresIn)
	}
}
