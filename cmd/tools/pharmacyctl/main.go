package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/medassist/backend/internal/model/pharmacy"
	"github.com/zhouzirui/medassist/backend/pkg/pharmacyapi"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pharmacyctl: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	baseURL string
	format  string
}

func (o *rootOptions) client() *pharmacyapi.Client {
	return pharmacyapi.New(o.baseURL, nil)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "pharmacyctl",
		Short:         "Manage pharmacy records through the MedAssist API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := os.Getenv("PHARMACY_API_URL")
	if defaultURL == "" {
		defaultURL = pharmacyapi.DefaultBaseURL
	}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "url", defaultURL, "pharmacies endpoint (env PHARMACY_API_URL)")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "auto", "output format: auto, tsv or json")

	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newGetCmd(opts))
	cmd.AddCommand(newCreateCmd(opts))
	cmd.AddCommand(newUpdateCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		name     string
		city     string
		active   string
		noHeader bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pharmacies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := pharmacyapi.Query{Name: name, City: city}
			if active != "" {
				v, err := strconv.ParseBool(active)
				if err != nil {
					return fmt.Errorf("invalid --active value: %w", err)
				}
				q.IsActive = &v
			}

			items, err := opts.client().List(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return writePharmacies(out, items, !noHeader, resolveFormat(opts.format, out))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&name, "name", "", "filter by name substring")
	flags.StringVar(&city, "city", "", "filter by city")
	flags.StringVar(&active, "active", "", "filter by active flag (true or false)")
	flags.BoolVar(&noHeader, "no-header", false, "omit the header row in tsv output")
	return cmd
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one pharmacy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.client().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeOne(cmd.OutOrStdout(), p, opts.format)
		},
	}
}

func newCreateCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pharmacy from a JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPharmacy(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			created, err := opts.client().Create(cmd.Context(), p)
			if err != nil {
				return err
			}
			return writeOne(cmd.OutOrStdout(), created, opts.format)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file, - for stdin")
	return cmd
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a pharmacy with a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPharmacy(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			updated, err := opts.client().Update(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			return writeOne(cmd.OutOrStdout(), updated, opts.format)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file, - for stdin")
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a pharmacy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func writeOne(out io.Writer, p pharmacy.Pharmacy, format string) error {
	format = resolveFormat(format, out)
	if format == "json" {
		return writeJSON(out, p)
	}
	return writePharmacies(out, []pharmacy.Pharmacy{p}, true, format)
}

func readPharmacy(stdin io.Reader, file string) (pharmacy.Pharmacy, error) {
	var r io.Reader = stdin
	if file != "" && file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return pharmacy.Pharmacy{}, fmt.Errorf("open %s: %w", file, err)
		}
		defer f.Close()
		r = f
	}

	// isActive defaults to true when the document omits it.
	var doc struct {
		pharmacy.Pharmacy
		IsActive *bool `json:"isActive"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return pharmacy.Pharmacy{}, errors.New("empty pharmacy document")
		}
		return pharmacy.Pharmacy{}, fmt.Errorf("decode pharmacy: %w", err)
	}
	p := doc.Pharmacy
	p.IsActive = doc.IsActive == nil || *doc.IsActive
	return p, nil
}
