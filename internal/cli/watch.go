package cli

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/llmxray/internal/backend"
	"github.com/ppiankov/llmxray/internal/tui"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <prompt>",
	Short: "Inspect a streaming response word by word",
	Long: `Watch opens an interactive view of the attention stream. The prompt is
shaded by how similar the newest word is to each prompt word.

Keys:
  ←/→  h/l   focus the previous or next word (freezes the view)
  g/G        focus the first or last word
  esc        follow the newest word again
  s          stop the stream
  r          restart the stream
  q          quit

Logs go to ~/.llmxray/watch.log unless --log-file is set.

Example:
  llmxray watch "What is the capital of France?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	client := backend.New(backend.OptionsFromConfig(cfg, logger))

	m := tui.New(cmd.Context(), client, tui.Options{
		Prompt:          strings.Join(args, " "),
		Amplification:   cfg.Heat.Amplification,
		BrightText:      cfg.Heat.BrightText,
		TopContextUnits: cfg.Heat.TopContextUnits,
		Color:           cfg.Output.Color,
		Logger:          logger,
	})

	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	return err
}
