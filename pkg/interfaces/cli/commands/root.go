package commands

import (
	"github.com/spf13/cobra"

	"github.com/vsinha/shopfloor/pkg/interfaces/cli/output"
)

// NewRootCommand assembles the shopfloor command tree
func NewRootCommand() *cobra.Command {
	var global GlobalConfig

	root := &cobra.Command{
		Use:   "shopfloor",
		Short: "Job lifecycle, routing plans and the production board for a metals plant",
		Long: `shopfloor runs the authoritative job service and drives it from the command line.

Start the service with "shopfloor serve", then plan jobs, move them across the
board and record shop-floor actions against it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&global.ConfigPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&global.LogLevel, "log-level", "", "Log level override: debug, info, warn, error")
	root.PersistentFlags().StringVar(&global.Format, "format", output.FormatText, "Output format: text, json")

	root.AddCommand(
		newServeCmd(&global),
		newBoardCmd(&global),
		newPlanCmd(&global),
		newTrackCmd(&global),
		newRegistryCmd(&global),
	)
	return root
}

func newServeCmd(global *GlobalConfig) *cobra.Command {
	var config ServeConfig
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the job service API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Global = *global
			config.Global.Stdout = cmd.OutOrStdout()
			return NewServeCommand(config).Execute(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&config.Addr, "addr", "", "Listen address (default from config, :8080)")
	cmd.Flags().StringVar(&config.Scenario, "scenario", "", "Scenario directory used to seed empty storage")
	cmd.Flags().StringVar(&config.Storage, "storage", "", "Storage driver: memory, sqlite")
	cmd.Flags().StringVar(&config.DBPath, "db", "", "SQLite database path")
	return cmd
}

func newBoardCmd(global *GlobalConfig) *cobra.Command {
	var config BoardConfig
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the board and optionally move jobs or change priorities",
		Example: `  shopfloor board
  shopfloor board --move JOB-000003=processing --priority JOB-000001=hot
  shopfloor board --status in-process --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Global = *global
			config.Global.Stdout = cmd.OutOrStdout()
			return NewBoardCommand(config).Execute(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&config.Remote, "remote", "", "Job service base URL (default from config)")
	cmd.Flags().StringVar(&config.Status, "status", "", "Only show jobs in this status")
	cmd.Flags().StringVar(&config.WorkCenterID, "work-center", "", "Only show jobs at this work center")
	cmd.Flags().StringVar(&config.LocationID, "location", "", "Only show jobs at this location")
	cmd.Flags().StringArrayVar(&config.Moves, "move", nil, "Drop a job onto a column, JOB=column (repeatable)")
	cmd.Flags().StringArrayVar(&config.Priorities, "priority", nil, "Change a job's priority, JOB=priority (repeatable)")
	return cmd
}

func newPlanCmd(global *GlobalConfig) *cobra.Command {
	var config PlanConfig
	cmd := &cobra.Command{
		Use:   "plan JOB",
		Short: "Attach or replace a job's routing plan",
		Example: `  shopfloor plan JOB-000001 --template Saw-Deburr-Pack --scenario scenarios/plant
  shopfloor plan JOB-000002 --op SAW@SAW-01 --op PACK`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Global = *global
			config.Global.Stdout = cmd.OutOrStdout()
			config.Job = args[0]
			return NewPlanCommand(config).Execute(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&config.Remote, "remote", "", "Job service base URL (default from config)")
	cmd.Flags().StringVar(&config.Scenario, "scenario", "", "Scenario directory holding the work center catalog")
	cmd.Flags().StringVar(&config.Template, "template", "", "Routing template name")
	cmd.Flags().StringArrayVar(&config.Operations, "op", nil, "Append an operation, TYPE or TYPE@WORKCENTER (repeatable)")
	return cmd
}

func newTrackCmd(global *GlobalConfig) *cobra.Command {
	var config TrackConfig
	cmd := &cobra.Command{
		Use:   "track JOB ACTION",
		Short: "Record a shop-floor action: start, pause, complete, output, advance, issue, hold, resume, cancel",
		Example: `  shopfloor track JOB-000004 output --good 12 --scrap 1
  shopfloor track JOB-000004 issue --category quality --message "burrs on edge"
  shopfloor track JOB-000006 resume --to scheduled`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Global = *global
			config.Global.Stdout = cmd.OutOrStdout()
			config.Job = args[0]
			config.Action = args[1]
			return NewTrackCommand(config).Execute(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&config.Remote, "remote", "", "Job service base URL (default from config)")
	cmd.Flags().Int64Var(&config.Good, "good", 0, "Good pieces to add (output)")
	cmd.Flags().Int64Var(&config.Scrap, "scrap", 0, "Scrap pieces to add (output)")
	cmd.Flags().StringVar(&config.ResumeTo, "to", "", "Status to resume into (resume)")
	cmd.Flags().StringVar(&config.Category, "category", "", "Issue category (issue)")
	cmd.Flags().StringVar(&config.Message, "message", "", "Issue message (issue)")
	cmd.Flags().StringVar(&config.ReportedBy, "reported-by", "", "Operator reporting the issue (issue)")
	return cmd
}

func newRegistryCmd(global *GlobalConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "registry",
		Short: "Print the status table and priority ladder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := RegistryConfig{Global: *global}
			config.Global.Stdout = cmd.OutOrStdout()
			return NewRegistryCommand(config).Execute(cmd.Context())
		},
	}
}
