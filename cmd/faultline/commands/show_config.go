package commands

import (
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/faultline/internal/config"
	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
)

// ShowConfigCmd implements the 'show-config' command.
type ShowConfigCmd struct{}

type effectiveConfig struct {
	Logging config.LoggingConfig `yaml:"logging"`
	Render  config.RenderConfig  `yaml:"render"`
	Server  config.ServerConfig  `yaml:"server"`
	Journal config.JournalConfig `yaml:"journal"`
	Forward config.ForwardConfig `yaml:"forward"`
}

func (s *ShowConfigCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(g.Out)
	enc.SetIndent(2)
	if err := enc.Encode(effectiveConfig{
		Logging: cfg.Logging,
		Render:  cfg.Render,
		Server:  cfg.Server,
		Journal: cfg.Journal,
		Forward: cfg.Forward,
	}); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to encode configuration").Build()
	}
	return enc.Close()
}
