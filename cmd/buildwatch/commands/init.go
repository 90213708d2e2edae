package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/buildwatch/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Output directory for generated config file"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	// If the user specified an output directory, place the config there as "buildwatch.yaml".
	if i.Output != "" {
		return RunInit(filepath.Join(i.Output, config.DefaultFileName), i.Force)
	}
	return RunInit(root.Config, i.Force)
}

func RunInit(configPath string, force bool) error {
	fmt.Println("Initializing buildwatch project")
	fmt.Printf("Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		fmt.Println("Initialization failed")
		return err
	}
	fmt.Println("initialized successfully")
	return nil
}
