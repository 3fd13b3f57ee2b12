package main

import (
	"context"
	"os"

	"github.com/Kar2410/FLOW-FIX/internal/bootstrap"
	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/domain/jobModel"
	"github.com/Kar2410/FLOW-FIX/internal/rag"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
	"github.com/spf13/cobra"
)

// knowledgeBase is what the commands run against. rag.Pipeline implements it.
type knowledgeBase interface {
	rag.KnowledgeBase
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
}

type cli struct {
	configPath string
	kb         knowledgeBase
	app        *bootstrap.App
}

// newRootCmd builds the command tree. A non-nil kb skips bootstrapping.
func newRootCmd(kb knowledgeBase) *cobra.Command {
	c := &cli{kb: kb}
	root := &cobra.Command{
		Use:           "kbctl",
		Short:         "Manage the FlowFix knowledge base",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.connect(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close(context.WithoutCancel(cmd.Context()))
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a TOML settings file (defaults to $"+config.ConfigPathEnv+")")

	root.AddCommand(c.newIngestCmd(), c.newSearchCmd(), c.newDeleteCmd())
	return root
}

func (c *cli) connect(ctx context.Context) error {
	if c.kb != nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	settings, err := config.Load(c.configPath)
	logger_i.InitWithWriter(os.Stderr, settings.Production, settings.LogLevel)
	if err != nil {
		return err
	}
	app, err := bootstrap.New(ctx, settings, bootstrap.Options{})
	if err != nil {
		return err
	}
	c.app = app
	c.kb = app.Pipeline
	return nil
}
