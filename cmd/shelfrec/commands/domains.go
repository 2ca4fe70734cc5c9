package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/shelfrec/internal/domain"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
	shelfrec "github.com/kailas-cloud/shelfrec/pkg/sdk"
)

func newDomainsCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List domains and whether their datasets loaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := openSource(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer src.Close()

			statuses, err := src.Domains(cmd.Context())
			if err != nil {
				return err
			}
			printDomains(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
}

func printDomains(w io.Writer, statuses []shelfrec.DomainStatus) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOMAIN\tSTATUS\tITEMS\tDETAIL")
	for _, st := range statuses {
		status, detail := "available", st.Source
		if !st.Available {
			status, detail = "unavailable", st.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", st.Name, status, st.Items, detail)
	}
	_ = tw.Flush()
}

func newUploadCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <books|courses|movies> <file.csv>",
		Short: "Replace a domain dataset on --server, or validate the file locally",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := kind.Parse(args[0])
			if err != nil {
				return fmt.Errorf("%w: %w", domain.ErrUnknownDomain, err)
			}
			f, err := os.Open(args[1]) //nolint:gosec // operator-chosen input path
			if err != nil {
				return fmt.Errorf("open dataset: %w", err)
			}
			defer func() { _ = f.Close() }()

			src, err := openSource(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer src.Close()

			st, err := src.Upload(cmd.Context(), k, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d items loaded\n", st.Name, st.Items)
			return nil
		},
	}
}
