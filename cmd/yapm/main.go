package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frederic-klein/yapm/internal/config"
	"github.com/frederic-klein/yapm/internal/event"
	"github.com/frederic-klein/yapm/internal/logging"
	"github.com/frederic-klein/yapm/internal/project"
)

var (
	projectDir     string
	verbose        bool
	flushToolchain bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "yapm",
		Short:         "Yet Another Pack Manager - installs device-support pack components",
		Long:          "YAPM evaluates pack conditions against the selected device and toolchain, installs components with their requirements and maintains the generated RTE_Components.h header.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "Project directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(
		packCmd(),
		deviceCmd(),
		toolchainCmd(),
		componentCmd(),
		checkCmd(),
		expiredCmd(),
		refreshCmd(),
		headerCmd(),
		depsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "Error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	cfg, err := config.Load(projectDir)
	if err != nil {
		return logging.NewDefault()
	}
	logCfg := logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development}
	if verbose {
		logCfg.Level = "debug"
	}
	log, err := logging.New(logCfg)
	if err != nil {
		return logging.NewDefault()
	}
	return log
}

// withProject opens the project, runs fn and, when save is set, persists
// the project even if fn failed part way.
func withProject(save bool, fn func(p *project.Project) error) error {
	log := newLogger()
	defer log.Sync()

	p, err := project.Open(projectDir, log)
	if err != nil {
		return fmt.Errorf("opening project: %w", err)
	}
	p.Subscribe(printEvent)

	err = fn(p)
	if save {
		if saveErr := p.Save(); saveErr != nil {
			return fmt.Errorf("saving project: %w", saveErr)
		}
	}
	return err
}

func printEvent(e event.Event) {
	switch ev := e.(type) {
	case event.ComponentUpdate:
		yellow := color.New(color.FgYellow)
		for _, u := range ev.Updates {
			yellow.Printf("! %s is %s\n", u.Name, u.State)
		}
	case event.PackageChanged:
		if verbose && ev.Pack != "" {
			fmt.Printf("Pack %s loaded\n", ev.Pack)
		}
	case event.DeviceChanged:
		if verbose && ev.Previous != nil {
			fmt.Printf("Previous device %s\n", ev.Previous)
		}
	}
}
