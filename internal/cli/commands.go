package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ASHISH26940/petitiondesk/internal/dispatch"
	"github.com/ASHISH26940/petitiondesk/internal/metrics"
	"github.com/ASHISH26940/petitiondesk/internal/petition"
	"github.com/ASHISH26940/petitiondesk/internal/server"
	"github.com/ASHISH26940/petitiondesk/internal/store"
)

const shutdownTimeout = 5 * time.Second

// NewServeCommand starts the browser UI server.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the petition dashboard on localhost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			collector, err := metrics.New(reg)
			if err != nil {
				return err
			}

			a, err := opts.openApp(store.WithObserver(collector))
			if err != nil {
				return err
			}
			defer a.close()

			d := dispatch.New(a.store, a.logger.Named("dispatch"))
			srv := server.New(a.store, d, reg, a.logger.Named("server"))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(a.cfg.Addr())
			}()
			a.logger.Info("petition dashboard ready", zap.String("url", "http://"+a.cfg.Addr()+"/"))

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

// NewListCommand prints every petition.
func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all petitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.close()
			return printer{format: opts.Format, w: cmd.OutOrStdout()}.records(a.store.List())
		},
	}
}

// NewShowCommand prints one petition.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a single petition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.close()

			rec, err := a.store.Get(args[0])
			if err != nil {
				return err
			}
			return printer{format: opts.Format, w: cmd.OutOrStdout()}.record(rec)
		},
	}
}

// NewCreateCommand adds a petition.
func NewCreateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME DESCRIPTION",
		Short: "Create a petition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.close()

			rec, err := a.store.Create(petition.Fields{Name: args[0], Description: args[1]})
			if err != nil {
				return err
			}
			return printer{format: opts.Format, w: cmd.OutOrStdout()}.record(rec)
		},
	}
}

// NewUpdateCommand edits the name and/or description of a petition.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a petition's name or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch petition.Patch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if patch.Name == nil && patch.Description == nil {
				return errors.New("nothing to update: pass --name and/or --description")
			}

			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.close()

			rec, err := a.store.Update(args[0], patch)
			if err != nil {
				return err
			}
			return printer{format: opts.Format, w: cmd.OutOrStdout()}.record(rec)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	return cmd
}

// NewDeleteCommand removes a petition.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a petition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.Delete(args[0]); err != nil {
				return err
			}
			return printer{format: opts.Format, w: cmd.OutOrStdout()}.message("deleted %s", args[0])
		},
	}
}
