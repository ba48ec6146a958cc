package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/eqlog/eqlog-go/pkg/eqlog/entry"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for eqlog.

To load completions:

Bash:
  $ source <(eqlog completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ eqlog completion bash > /etc/bash_completion.d/eqlog
  # macOS:
  $ eqlog completion bash > $(brew --prefix)/etc/bash_completion.d/eqlog

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ eqlog completion zsh > "${fpath[1]}/_eqlog"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ eqlog completion fish | source

  # To load completions for each session, execute once:
  $ eqlog completion fish > ~/.config/fish/completions/eqlog.fish

PowerShell:
  PS> eqlog completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> eqlog completion powershell > eqlog.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Usage()
		}

		root := cmd.Root()
		out := cmd.OutOrStdout()

		switch args[0] {
		case "bash":
			return root.GenBashCompletionV2(out, true)
		case "zsh":
			return root.GenZshCompletion(out)
		case "fish":
			return root.GenFishCompletion(out, true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// completeList returns a completion function for a comma-separated flag
// whose values come from names. Already-selected values are left out, and
// full values (prefix + candidate) are returned for consistent behavior
// across shells.
func completeList(flagName string, names func() []string) func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		parts := strings.Split(toComplete, ",")
		prefix := strings.Join(parts[:len(parts)-1], ",")
		if prefix != "" {
			prefix += ","
		}
		current := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))

		used := make(map[string]struct{})
		addUsed := func(v string) {
			if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
				used[v] = struct{}{}
			}
		}
		for _, p := range parts[:len(parts)-1] {
			addUsed(p)
		}
		// Values already set on the flag (for repeated flag usage)
		if vals, err := cmd.Flags().GetStringSlice(flagName); err == nil {
			for _, v := range vals {
				addUsed(v)
			}
		}

		var candidates []string
		for _, name := range names() {
			if _, ok := used[name]; ok {
				continue
			}
			if strings.HasPrefix(name, current) {
				candidates = append(candidates, prefix+name)
			}
		}
		return candidates, cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
	}
}

// completeKinds completes entry kind names.
func completeKinds(flagName string) func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeList(flagName, ValidKindNames)
}

// completeChannels completes the DKP-eligible channel names.
func completeChannels(flagName string) func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeList(flagName, func() []string {
		return []string{string(entry.ChannelGuild), string(entry.ChannelRaid)}
	})
}

// registerKindCompletion registers completion for an entry kind flag.
func registerKindCompletion(cmd *cobra.Command, flagName string) {
	_ = cmd.RegisterFlagCompletionFunc(flagName, completeKinds(flagName))
}

// registerChannelCompletion registers completion for a channel list flag.
func registerChannelCompletion(cmd *cobra.Command, flagName string) {
	_ = cmd.RegisterFlagCompletionFunc(flagName, completeChannels(flagName))
}
