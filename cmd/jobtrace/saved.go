package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobtrace/jobtrace/internal/config"
	"github.com/jobtrace/jobtrace/internal/model"
	"github.com/jobtrace/jobtrace/internal/notifier"
	"github.com/jobtrace/jobtrace/internal/saved"
)

var (
	savedUser     string
	savedTitle    string
	savedCompany  string
	savedLocation string
	savedURL      string
)

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Manage saved jobs",
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved jobs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSavedList,
}

var savedAddCmd = &cobra.Command{
	Use:   "add <job-id>",
	Short: "Bookmark a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavedAdd,
}

var savedRemoveCmd = &cobra.Command{
	Use:   "remove <job-id>",
	Short: "Remove a bookmark",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavedRemove,
}

var profileCmd = &cobra.Command{
	Use:   "profile [display-name]",
	Short: "Show the profile, or set its display name",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfile,
}

func init() {
	savedCmd.PersistentFlags().StringVar(&savedUser, "user", "", "user id (default: user_id from config)")
	savedAddCmd.Flags().StringVar(&savedTitle, "title", "", "job title")
	savedAddCmd.Flags().StringVar(&savedCompany, "company", "", "company name")
	savedAddCmd.Flags().StringVar(&savedLocation, "location", "", "job location")
	savedAddCmd.Flags().StringVar(&savedURL, "url", "", "apply URL")
	_ = savedAddCmd.MarkFlagRequired("title")
	profileCmd.Flags().StringVar(&savedUser, "user", "", "user id (default: user_id from config)")

	rootCmd.AddCommand(savedCmd)
	rootCmd.AddCommand(profileCmd)
	savedCmd.AddCommand(savedListCmd)
	savedCmd.AddCommand(savedAddCmd)
	savedCmd.AddCommand(savedRemoveCmd)
}

// withSaved opens the configured store, runs fn and closes it.
func withSaved(fn func(ctx context.Context, svc *saved.Service, userID string) error) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	userID := savedUser
	if userID == "" {
		userID = cfg.UserID
	}
	if userID == "" {
		logger.Error("no user: pass --user or set user_id in config")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	svc := saved.NewService(st, st, cliNotifier(cfg, logger), logger)
	return fn(ctx, svc, userID)
}

// cliNotifier forwards notices to slack when configured. The CLI prints
// notices itself, so there is no log sink.
func cliNotifier(cfg *config.Config, logger *slog.Logger) model.Notifier {
	if cfg.Notification.Type != "slack" {
		return nil
	}
	return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, newHTTPClient(cfg), logger)
}

func printNotice(n model.Notice) {
	fmt.Printf("%s %s\n", n.Title, n.Description)
}

func runSavedList(cmd *cobra.Command, args []string) error {
	return withSaved(func(ctx context.Context, svc *saved.Service, userID string) error {
		jobs, err := svc.List(ctx, userID)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Println("No saved jobs.")
			return nil
		}

		fmt.Printf("%-20s %-40s %-24s %s\n", "Saved", "Title", "Company", "Job ID")
		fmt.Println(strings.Repeat("─", 100))
		for _, j := range jobs {
			fmt.Printf("%-20s %-40s %-24s %s\n",
				j.CreatedAt.Local().Format("2006-01-02 15:04"), truncate(j.JobTitle, 40), truncate(j.JobCompany, 24), j.JobID)
		}
		fmt.Printf("\nTotal: %d saved jobs\n", len(jobs))
		return nil
	})
}

func runSavedAdd(cmd *cobra.Command, args []string) error {
	return withSaved(func(ctx context.Context, svc *saved.Service, userID string) error {
		job := model.Job{
			ID:       args[0],
			Title:    savedTitle,
			Company:  savedCompany,
			Location: savedLocation,
			URL:      savedURL,
		}
		n, err := svc.Save(ctx, userID, job)
		printNotice(n)
		if errors.Is(err, model.ErrAlreadySaved) {
			return nil
		}
		return err
	})
}

func runSavedRemove(cmd *cobra.Command, args []string) error {
	return withSaved(func(ctx context.Context, svc *saved.Service, userID string) error {
		n, err := svc.Unsave(ctx, userID, args[0])
		printNotice(n)
		return err
	})
}

func runProfile(cmd *cobra.Command, args []string) error {
	return withSaved(func(ctx context.Context, svc *saved.Service, userID string) error {
		if len(args) == 1 {
			p, err := svc.UpdateProfile(ctx, userID, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Display name set to %q\n", p.DisplayName)
			return nil
		}
		p, err := svc.Profile(ctx, userID, "")
		if err != nil {
			return err
		}
		name := p.DisplayName
		if name == "" {
			name = "(not set)"
		}
		fmt.Printf("User:         %s\nDisplay name: %s\n", p.UserID, name)
		return nil
	})
}
