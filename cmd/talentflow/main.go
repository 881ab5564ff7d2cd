// Command talentflow is the operator CLI: it runs schema migrations, ingests
// CV files and drives candidates through stages and offers against the
// configured record store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/TalentFlow/internal/app"
	"github.com/dharsanguruparan/TalentFlow/internal/config"
	"github.com/dharsanguruparan/TalentFlow/internal/cvtext"
	"github.com/dharsanguruparan/TalentFlow/internal/database"
	"github.com/dharsanguruparan/TalentFlow/internal/eventlog"
	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
)

var logMode string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "talentflow: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "talentflow",
		Short: "TalentFlow operator CLI",
		Long: `talentflow runs one engine operation per invocation against the store configured
through TALENTFLOW_* environment variables (or a .env file).`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&logMode, "log-mode", "", "Override TALENTFLOW_LOG_MODE (development or production)")
	cmd.AddCommand(
		newMigrateCmd(),
		newIngestCmd(),
		newCandidatesCmd(),
		newStageCmd(),
		newOverrideCmd(),
		newTimelineCmd(),
		newOfferCmd(),
		newCVLinkCmd(),
	)
	return cmd
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if logMode != "" {
		cfg.LogMode = logMode
	}
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, lg, nil
}

// withApp builds an App for the duration of one command.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, lg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		cancel()
		return err
	}
	defer func() {
		cancel()
		a.Close()
	}()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres tables if they are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.UsesPostgres() {
				return fmt.Errorf("migrate requires TALENTFLOW_STORE=%s", config.StorePostgres)
			}
			pool, err := database.Connect(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := database.EnsureSchema(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newIngestCmd() *cobra.Command {
	var jobID string
	cmd := &cobra.Command{
		Use:   "ingest FILE",
		Short: "Extract a CV file and run it through the ingestion pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			text, err := cvtext.Extract(filepath.Base(path), data)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				raw := cvtext.ParseFields(jobID, text)
				c, err := a.Pipeline.Ingest(ctx, jobID, raw)
				if err != nil {
					return err
				}
				return printJSON(cmd, c)
			})
		},
	}
	cmd.Flags().StringVar(&jobID, "job", "", "Job id to ingest under (generated when empty)")
	return cmd
}

func newCandidatesCmd() *cobra.Command {
	var jobID string
	cmd := &cobra.Command{
		Use:   "candidates [ID]",
		Short: "Show one candidate or list candidates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if len(args) == 1 {
					c, err := a.Candidates.Get(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd, c)
				}
				list, err := a.Candidates.List(ctx, jobID)
				if err != nil {
					return err
				}
				return printJSON(cmd, list)
			})
		},
	}
	cmd.Flags().StringVar(&jobID, "job", "", "Only list candidates of this job")
	return cmd
}

func newStageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Move candidates between pipeline stages",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set ID STAGE",
			Short: "Transition a candidate to STAGE",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(ctx context.Context, a *app.App) error {
					res, err := a.Workflow.ChangeStage(ctx, args[0], model.Stage(args[1]))
					if err != nil {
						return err
					}
					return printJSON(cmd, res)
				})
			},
		},
		&cobra.Command{
			Use:   "advance ID",
			Short: "Move a candidate to its next forward stage",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(ctx context.Context, a *app.App) error {
					res, err := a.Workflow.Advance(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd, res)
				})
			},
		},
	)
	return cmd
}

func newOverrideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "override ID STEP VALUE",
		Short: "Manually set and lock the reference, offer or onboarding status",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				c, err := a.Candidates.Override(ctx, args[0], model.Step(args[1]), args[2])
				if err != nil {
					return err
				}
				return printJSON(cmd, c)
			})
		},
	}
}

func newTimelineCmd() *cobra.Command {
	var audit bool
	cmd := &cobra.Command{
		Use:   "timeline ID",
		Short: "Print a candidate's timeline in chronological order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if audit {
					entries, err := a.Events.Audit(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd, entries)
				}
				events, err := a.Events.Timeline(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, eventlog.Chronological(events))
			})
		},
	}
	cmd.Flags().BoolVar(&audit, "audit", false, "Print the audit log instead")
	return cmd
}

func newOfferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offer",
		Short: "Draft, send and resolve offers",
	}
	var salary, startDate, notes, content string
	draft := &cobra.Command{
		Use:   "draft CANDIDATE_ID",
		Short: "Create a draft offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := offerFields(cmd, salary, startDate, notes, content)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				o, err := a.Offers.CreateDraft(ctx, args[0], fields)
				if err != nil {
					return err
				}
				return printJSON(cmd, o)
			})
		},
	}
	draft.Flags().StringVar(&salary, "salary", "", "Offered salary")
	draft.Flags().StringVar(&startDate, "start-date", "", "Start date (YYYY-MM-DD)")
	draft.Flags().StringVar(&notes, "notes", "", "Internal notes")
	draft.Flags().StringVar(&content, "content", "", "Offer letter body")

	send := &cobra.Command{
		Use:   "send OFFER_ID",
		Short: "Send and lock an offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				o, err := a.Offers.Send(ctx, args[0])
				if o != nil {
					if perr := printJSON(cmd, o); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
	lock := &cobra.Command{
		Use:   "lock OFFER_ID",
		Short: "Freeze an offer's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				o, err := a.Offers.Lock(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, o)
			})
		},
	}
	status := &cobra.Command{
		Use:   "status OFFER_ID STATUS",
		Short: "Record accepted, rejected or withdrawn",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				o, err := a.Offers.UpdateStatus(ctx, args[0], model.OfferStatus(args[1]))
				if o != nil {
					if perr := printJSON(cmd, o); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
	cmd.AddCommand(draft, send, lock, status)
	return cmd
}

// offerFields only sets the flags the user passed.
func offerFields(cmd *cobra.Command, salary, startDate, notes, content string) (model.OfferFields, error) {
	var f model.OfferFields
	flags := cmd.Flags()
	if flags.Changed("salary") {
		v, err := strconv.ParseFloat(salary, 64)
		if err != nil {
			return f, fmt.Errorf("parse salary: %w", err)
		}
		f.Salary = model.Some(v)
	}
	if flags.Changed("start-date") {
		f.StartDate = model.Some(startDate)
	}
	if flags.Changed("notes") {
		f.Notes = model.Some(notes)
	}
	if flags.Changed("content") {
		f.Content = model.Some(content)
	}
	return f, nil
}

func newCVLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cv-link ID",
		Short: "Print a signed download path for a candidate's CV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				c, err := a.Candidates.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if c.CVObjectKey == "" {
					return fmt.Errorf("candidate %s has no CV", c.ID)
				}
				fmt.Fprintln(cmd.OutOrStdout(), a.Signer.CVLink(c.ID, a.Cfg.SignedURLTTL))
				return nil
			})
		},
	}
}
