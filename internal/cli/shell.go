package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/clihunter/internal/history"
)

// The widgets pipe live query output into fzf and paste the selected
// command back onto the edit line. Fields arrive unit-separator joined
// as raw_command, description, tags, id; fzf displays the first three
// and the widget keeps only the command.
const zshWidget = `# clihunter: press Ctrl-G to search your command store
clihunter-search-widget() {
  local selected
  selected=$(clihunter query --live -- "" | fzf \
    --delimiter=$'\x1f' --with-nth=1,2,3 \
    --bind 'change:reload(clihunter query --live -- {q} || true)' \
    --height 60% --reverse --prompt 'clihunter> ') || { zle reset-prompt; return; }
  if [[ -n "$selected" ]]; then
    LBUFFER="${selected%%$'\x1f'*}"
  fi
  zle reset-prompt
}
zle -N clihunter-search-widget
bindkey '^G' clihunter-search-widget
`

const bashWidget = `# clihunter: press Ctrl-G to search your command store
clihunter_search_widget() {
  local selected
  selected=$(clihunter query --live -- "" | fzf \
    --delimiter=$'\x1f' --with-nth=1,2,3 \
    --bind 'change:reload(clihunter query --live -- {q} || true)' \
    --height 60% --reverse --prompt 'clihunter> ') || return
  if [[ -n "$selected" ]]; then
    READLINE_LINE="${selected%%$'\x1f'*}"
    READLINE_POINT=${#READLINE_LINE}
  fi
}
bind -x '"\C-g": clihunter_search_widget'
`

func newShellCommand(app *App) *cobra.Command {
	var shell string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Print the shell key-binding snippet",
		Long: "Print a snippet that binds Ctrl-G to live search through fzf.\n" +
			"Add it to your shell rc file, e.g.:\n\n" +
			"  clihunter shell --shell zsh >> ~/.zshrc",
		RunE: func(cmd *cobra.Command, args []string) error {
			sh := history.Shell(shell)
			if shell == "" {
				sh = history.Detect()
			}

			switch sh {
			case history.ShellZsh:
				fmt.Fprint(cmd.OutOrStdout(), zshWidget)
			case history.ShellBash:
				fmt.Fprint(cmd.OutOrStdout(), bashWidget)
			default:
				return fmt.Errorf("no widget available for shell %q", sh)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&shell, "shell", "", "Shell flavor: zsh or bash (default: detect from $SHELL)")
	return cmd
}
