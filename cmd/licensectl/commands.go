package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"smallbiznis-license/pkg/config"
	"smallbiznis-license/pkg/db"
	"smallbiznis-license/pkg/db/pagination"
	"smallbiznis-license/pkg/hashistack/secretmanager"
	"smallbiznis-license/pkg/i18n"
	"smallbiznis-license/pkg/logger"
	"smallbiznis-license/services/auditlog"
	"smallbiznis-license/services/license"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// cliSource is recorded as the source address of every audited CLI action.
var cliSource = auditlog.Source{Address: "cli"}

const dateLayout = "2006-01-02"

// run starts a short-lived app with the given modules and populates targets.
func run(ctx context.Context, targets []any, modules ...fx.Option) (func(), error) {
	opts := append([]fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		db.Module,
		fx.Populate(targets...),
		fx.NopLogger,
	}, modules...)

	app := fx.New(opts...)
	if err := app.Start(ctx); err != nil {
		return nil, err
	}

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Stop(stopCtx)
	}, nil
}

func withService(ctx context.Context, fn func(*license.Service) error) error {
	var svc *license.Service
	stop, err := run(ctx, []any{&svc}, i18n.Module, auditlog.Module, license.Module)
	if err != nil {
		return err
	}
	defer stop()

	return fn(svc)
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the licenses and activation_logs tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var gdb *gorm.DB
			stop, err := run(cmd.Context(), []any{&gdb})
			if err != nil {
				return err
			}
			defer stop()

			if err := gdb.AutoMigrate(&license.License{}, &auditlog.Entry{}); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newCreateCommand() *cobra.Command {
	var client, email, notes, expires string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a new license and print its key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			expiresAt, err := time.Parse(dateLayout, expires)
			if err != nil {
				return fmt.Errorf("--expires must use YYYY-MM-DD: %w", err)
			}

			return withService(cmd.Context(), func(svc *license.Service) error {
				lic, err := svc.Create(cmd.Context(), license.CreateRequest{
					ClientName:  client,
					ClientEmail: email,
					Notes:       notes,
					ExpiresAt:   expiresAt,
				})
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), lic.LicenseKey)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&client, "client", "", "Client name (required)")
	cmd.Flags().StringVar(&expires, "expires", "", "Expiration date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&email, "email", "", "Client email")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("expires")

	return cmd
}

func newListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List licenses, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), func(svc *license.Service) error {
				res, err := svc.List(cmd.Context(), license.ListRequest{Pagination: pagination.Pagination{Limit: limit}})
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "KEY\tCLIENT\tMACHINE\tEXPIRES\tACTIVE")
				for _, l := range res.Licenses {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", l.LicenseKey, l.ClientName, l.BoundTo(), l.ExpiresAt.Format(dateLayout), l.IsActive)
				}
				if err := w.Flush(); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%d of %d licenses\n", len(res.Licenses), res.Total)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of licenses, 0 for all")

	return cmd
}

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset KEY",
		Short: "Unbind a license from its machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(svc *license.Service) error {
				lic, err := svc.ResetMachine(cmd.Context(), args[0], cliSource)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is no longer bound\n", lic.LicenseKey)
				return nil
			})
		},
	}
}

func newStatusCommand(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " KEY",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(svc *license.Service) error {
				lic, err := svc.SetActive(cmd.Context(), args[0], active, cliSource)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s active=%t\n", lic.LicenseKey, lic.IsActive)
				return nil
			})
		},
	}
}
