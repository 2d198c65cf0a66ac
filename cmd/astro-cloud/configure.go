package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/jbcurtin/astro-cloud/clientcli"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Manage credential profiles",
	Long: `Manage credential profiles in the profile file.

A profile either names a profile in the shared AWS files (~/.aws/credentials
and ~/.aws/config) or carries static keys, and may pin a region. Select one
with --profile or ASTROCLOUD_PROFILE.

Profiles are stored in ~/.astro-cloud/config.yaml (env: ASTROCLOUD_CLIENT_CONFIG).`,
}

var configureListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configured profiles",
	Long: `List all profiles configured in the profile file.

The default profile is marked with an asterisk (*).`,
	RunE: runConfigureList,
}

var configureAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new profile",
	Long: `Add a new profile interactively.

You will be prompted for:
  - AWS shared profile name (optional)
  - Region (optional)
  - Access key and secret key (optional)
  - Whether to set as default`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigureAdd,
}

var configureRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a profile",
	Args:    cobra.ExactArgs(1),
	RunE:    runConfigureRemove,
}

var configureSetDefaultCmd = &cobra.Command{
	Use:   "set-default <name>",
	Short: "Set the default profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigureSetDefault,
}

var configureShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show profile details",
	Long: `Show details for a profile.

If no name is provided, shows the default profile.
Secrets are hidden by default; use --show-secrets to reveal them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigureShow,
}

var showSecrets bool

func init() {
	configureCmd.AddCommand(configureListCmd)
	configureCmd.AddCommand(configureAddCmd)
	configureCmd.AddCommand(configureRemoveCmd)
	configureCmd.AddCommand(configureSetDefaultCmd)
	configureCmd.AddCommand(configureShowCmd)

	configureShowCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show secret values")
	configureListCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show secret values")
}

func runConfigureList(_ *cobra.Command, _ []string) error {
	cfg, err := clientcli.LoadOrEmpty(profilesPath())
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	if len(cfg.Profiles) == 0 {
		fmt.Println("No profiles configured.")
		fmt.Println("Run 'astro-cloud configure add <name>' to create one.")
		return nil
	}

	formatter, err := getFormatter()
	if err != nil {
		return err
	}
	return formatter.FormatProfileList(os.Stdout, cfg.Profiles, cfg.DefaultName(), showSecrets)
}

func runConfigureAdd(_ *cobra.Command, args []string) error {
	name := args[0]
	path := profilesPath()

	cfg, err := clientcli.LoadOrEmpty(path)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	existing, _ := cfg.GetProfile(name)
	if existing != nil && !confirm(fmt.Sprintf("Profile '%s' already exists. Update it", name)) {
		fmt.Println("Cancelled.")
		return nil
	}

	profile, err := promptProfile(name)
	if err != nil {
		return handlePromptError(err)
	}

	if existing != nil {
		_ = cfg.RemoveProfile(name)
	}
	profile.Default = len(cfg.Profiles) == 0 || confirm("Set as default profile")

	if err := cfg.AddProfile(*profile); err != nil {
		return fmt.Errorf("add profile: %w", err)
	}
	if profile.Default {
		_ = cfg.SetDefault(name)
	}

	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("save profiles: %w", err)
	}

	verb := "added"
	if existing != nil {
		verb = "updated"
	}
	fmt.Printf("Profile '%s' %s.\n", name, verb)
	if profile.Default {
		fmt.Println("Set as default profile.")
	}
	return nil
}

// promptProfile asks for the fields of profile name. Every field is optional
// except the secret key once an access key is given.
func promptProfile(name string) (*clientcli.Profile, error) {
	p := &clientcli.Profile{Name: name}

	fields := []struct {
		label string
		dest  *string
	}{
		{"AWS shared profile (empty for none)", &p.AWSProfile},
		{"Region (empty to use the AWS files)", &p.Region},
		{"Access Key (empty for none)", &p.AccessKey},
	}
	for _, f := range fields {
		value, err := (&promptui.Prompt{Label: f.label}).Run()
		if err != nil {
			return nil, err
		}
		*f.dest = value
	}

	if p.AccessKey == "" {
		return p, nil
	}

	secretPrompt := promptui.Prompt{
		Label: "Secret Key",
		Mask:  '*',
		Validate: func(input string) error {
			if input == "" {
				return errors.New("secret key is required with an access key")
			}
			return nil
		},
	}
	secret, err := secretPrompt.Run()
	if err != nil {
		return nil, err
	}
	p.SecretKey = secret
	return p, nil
}

func runConfigureRemove(_ *cobra.Command, args []string) error {
	name := args[0]
	return editProfiles(func(cfg *clientcli.ConfigFile) (bool, error) {
		if _, err := cfg.GetProfile(name); err != nil {
			return false, err
		}
		if !confirm(fmt.Sprintf("Remove profile '%s'", name)) {
			fmt.Println("Cancelled.")
			return false, nil
		}
		if err := cfg.RemoveProfile(name); err != nil {
			return false, fmt.Errorf("remove profile: %w", err)
		}
		fmt.Printf("Profile '%s' removed.\n", name)
		return true, nil
	})
}

func runConfigureSetDefault(_ *cobra.Command, args []string) error {
	name := args[0]
	return editProfiles(func(cfg *clientcli.ConfigFile) (bool, error) {
		if err := cfg.SetDefault(name); err != nil {
			return false, err
		}
		fmt.Printf("Default profile set to '%s'.\n", name)
		return true, nil
	})
}

func runConfigureShow(_ *cobra.Command, args []string) error {
	cfg, err := clientcli.LoadConfigFile(profilesPath())
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	p, err := cfg.GetProfile(name)
	if err != nil {
		return err
	}

	formatter, err := getFormatter()
	if err != nil {
		return err
	}
	return formatter.FormatProfileShow(os.Stdout, *p, p.Name == cfg.DefaultName(), showSecrets)
}

// editProfiles loads the profile file, applies fn and saves when fn reports a change.
func editProfiles(fn func(*clientcli.ConfigFile) (bool, error)) error {
	path := profilesPath()

	cfg, err := clientcli.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	changed, err := fn(cfg)
	if err != nil || !changed {
		return err
	}

	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("save profiles: %w", err)
	}
	return nil
}

func confirm(label string) bool {
	_, err := (&promptui.Prompt{Label: label, IsConfirm: true}).Run()
	return err == nil
}

// handlePromptError treats an aborted prompt as a cancellation.
func handlePromptError(err error) error {
	switch {
	case errors.Is(err, promptui.ErrInterrupt):
		fmt.Println("\nCancelled.")
		os.Exit(0)
	case errors.Is(err, promptui.ErrAbort):
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
