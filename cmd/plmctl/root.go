package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"miniplm/client"
	"miniplm/config"
	"miniplm/hybridstorage"
	"miniplm/logger"
	"miniplm/workbench"
)

// app is the state shared by one plmctl invocation.
type app struct {
	cfg   config.Config
	cache *hybridstorage.SQLiteStore
	bench *workbench.Workbench
	api   *client.Client // nil when offline
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "plmctl",
		Short:         "Manage products, stages and file revisions",
		Long:          "plmctl edits the product tree kept by the Mini PLM server. Changes are cached locally and saved there when the server is unreachable.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd); err != nil {
				a.close()
				return err
			}
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default miniplm.yaml)")
	flags.String("server", "", "server base URL")
	flags.String("cache", "", "local cache database path")
	flags.String("product", "", "product to work on (name or index)")
	flags.Bool("offline", false, "do not contact the server")
	flags.BoolP("verbose", "v", false, "verbose output")

	root.AddCommand(
		newLsCmd(a),
		newProductCmd(a),
		newStageCmd(a, "stage"),
		newStageCmd(a, "iteration"),
		newUploadCmd(a),
		newChildCmd(a),
		newRevCmd(a),
		newSetCmd(a),
		newDescribeCmd(a),
		newMvCmd(a),
		newRmCmd(a),
		newURLCmd(a),
		newGetCmd(a),
		newLinkCmd(a),
		newStatusCmd(a),
	)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	if err := config.Init(cfgFile); err != nil {
		return err
	}
	if err := viper.BindPFlag("client.server", cmd.Flags().Lookup("server")); err != nil {
		return err
	}
	if err := viper.BindPFlag("client.cache", cmd.Flags().Lookup("cache")); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := logger.WARN
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = logger.DEBUG
	}
	if err := logger.Initialize(logger.Config{
		Level:    level,
		Output:   cmd.ErrOrStderr(),
		FileName: "plmctl",
	}); err != nil {
		return err
	}

	ctx := cmd.Context()
	cache, err := hybridstorage.OpenSQLiteStore(ctx, cfg.Client.Cache)
	if err != nil {
		return err
	}
	cache.MaxTotalBytes = cfg.Client.QuotaBytes
	cache.MaxValueBytes = cfg.Client.ValueQuotaBytes
	a.cache = cache

	var remote hybridstorage.Remote
	var uploader workbench.Uploader
	if offline, _ := cmd.Flags().GetBool("offline"); !offline {
		a.api = client.New(cfg.Client.Server, cfg.Client.Timeout)
		remote, uploader = a.api, a.api
	}

	a.bench = workbench.New(hybridstorage.New(remote, cache, cfg.Client.ChunkSize), uploader)
	notice, err := a.bench.Open(ctx)
	if err != nil {
		return err
	}
	logger.Debug("%s", notice.Text)
	if a.bench.Degraded() {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: server unavailable, working from the local cache")
	}

	if product, _ := cmd.Flags().GetString("product"); product != "" {
		idx, err := a.productIndex(product)
		if err != nil {
			return err
		}
		if _, err := a.bench.SelectProduct(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) close() error {
	if a.cache == nil {
		return nil
	}
	err := a.cache.Close()
	a.cache = nil
	return err
}

// productIndex resolves a product name (case-insensitive) or a zero-based index.
func (a *app) productIndex(ref string) (int, error) {
	products := a.bench.Products()
	for i, p := range products {
		if strings.EqualFold(p.Name, ref) {
			return i, nil
		}
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 0 && n < len(products) {
		return n, nil
	}
	return 0, fmt.Errorf("product %q not found", ref)
}

// report prints the notice of a successful command, or folds it into the error.
func report(cmd *cobra.Command, n workbench.Notice, err error) error {
	if err != nil {
		if n.Text != "" && n.Text != err.Error() {
			return fmt.Errorf("%s: %w", n.Text, err)
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), n.Text)
	return nil
}
