package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ncecere/model_router/internal/providers"
)

func providersCmd() *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List built provider routes",
		Long:  "List providers that built successfully from the current configuration. With --probe each route's credentials are verified.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			if probe {
				sess.HealthMon.CheckNow(cmd.Context())
			}
			statuses := sess.HealthMon.Statuses()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tNAME\tMODEL\tSOURCE\tHEALTH")
			for _, name := range sess.Engine.Names() {
				route, _ := sess.Engine.Route(name)
				model := route.Model()
				health := "-"
				if status, ok := statuses[name]; ok {
					health = "ok"
					if !status.Healthy {
						health = status.Error
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name, route.DisplayName, model.ID, model.Source, health)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "Probe each provider before listing")

	knownCmd := &cobra.Command{
		Use:   "known",
		Short: "List every provider the router knows how to build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tNAME\tCAPABILITIES\tDESCRIPTION")
			for _, def := range providers.DefaultDefinitions() {
				fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", def.Name, def.DisplayName, def.Capabilities, def.Description)
			}
			return w.Flush()
		},
	}
	cmd.AddCommand(knownCmd)
	return cmd
}

func modelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "model <provider>",
		Short: "Show the resolved model for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			route, ok := sess.Engine.Route(args[0])
			if !ok {
				return fmt.Errorf("provider %q is not configured", args[0])
			}
			return printJSON(os.Stdout, route.Handler.FetchModel(cmd.Context()))
		},
	}
}

func modelsCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "models <provider>",
		Short: "Show the model catalog for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			route, ok := sess.Engine.Route(args[0])
			if !ok {
				return fmt.Errorf("provider %q is not configured", args[0])
			}
			if refresh {
				record, err := sess.Catalog.Refresh(cmd.Context(), route.Provider)
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, record)
			}
			return printJSON(os.Stdout, sess.Catalog.GetModels(cmd.Context(), route.Provider))
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass cached catalogs and report fetch errors")
	return cmd
}
