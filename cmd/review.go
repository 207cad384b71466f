package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hellio/hr-mailroom/internal/hellio"
	"github.com/hellio/hr-mailroom/internal/logger"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptPositions  = "Browse positions"
	PromptCandidates = "Browse candidates"
	PromptExit       = "Exit"
	PromptBack       = "back"
)

var errExit = errors.New("exit requested")

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Interactively browse the positions and candidates the mailroom has ingested",
	Run: func(_ *cobra.Command, _ []string) {
		review()
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func review() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil || config.Backend == nil || config.Backend.URL == "" {
		logger.Fatal("backend configuration is required")
	}

	backend, err := newBackendClient(config, logger)
	if err != nil {
		logger.Fatal("building backend client", zap.Error(err))
	}

	prompt := promptui.Select{
		Label: "What do you want to review?",
		Items: []string{PromptPositions, PromptCandidates, PromptExit},
	}

	for {
		_, choice, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		switch choice {
		case PromptPositions:
			err = browsePositions(ctx, backend)
		case PromptCandidates:
			err = browseCandidates(ctx, backend)
		default:
			err = errExit
		}

		if err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func browsePositions(ctx context.Context, backend *hellio.Client) error {
	positions, err := backend.ListPositions(ctx)
	if err != nil {
		return err
	}

	items := make([]string, 0, len(positions)+1)
	for _, p := range positions {
		items = append(items, fmt.Sprintf("%s %s / %s", p.ID, p.Title, p.Company))
	}

	for {
		selected, err := pick("Choose a position and press ENTER", items)
		if err != nil || selected == PromptBack {
			return err
		}

		id := firstField(selected)
		details, err := backend.GetPosition(ctx, id)
		if err != nil {
			return err
		}
		printDetails(details)
	}
}

func browseCandidates(ctx context.Context, backend *hellio.Client) error {
	candidates, err := backend.ListCandidates(ctx)
	if err != nil {
		return err
	}

	items := make([]string, 0, len(candidates)+1)
	for _, c := range candidates {
		items = append(items, fmt.Sprintf("%s %s / %s", c.ID, c.Name, c.Email))
	}

	for {
		selected, err := pick("Choose a candidate and press ENTER", items)
		if err != nil || selected == PromptBack {
			return err
		}

		id := firstField(selected)
		details, err := backend.GetCandidate(ctx, id)
		if err != nil {
			return err
		}
		printDetails(details)
	}
}

func pick(label string, items []string) (string, error) {
	prompt := promptui.Select{
		Label: label,
		Items: append(items, PromptBack),
	}

	_, selected, err := prompt.Run()
	return selected, err
}

func firstField(s string) string {
	for i, r := range s {
		if r == ' ' {
			return s[:i]
		}
	}
	return s
}

func printDetails(details map[string]any) {
	pretty, _ := json.MarshalIndent(details, "", "  ")
	fmt.Println(string(pretty))
}
