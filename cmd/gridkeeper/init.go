// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gridkeeper/gridkeeper/internal/channel/vk"
	"github.com/gridkeeper/gridkeeper/internal/config"
	"github.com/gridkeeper/gridkeeper/internal/secrets"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

// initHTTPClient is used for token validation. Tests replace it.
var initHTTPClient = &http.Client{Timeout: 10 * time.Second}

// validateToken checks a community token and returns its group id.
var validateToken = func(ctx context.Context, token string) (int64, error) {
	return vk.ValidateToken(ctx, initHTTPClient, token)
}

// configPathForWrite returns where init writes the config. Tests override it.
var configPathForWrite = config.DefaultConfigPath

type initWizardStep int

const (
	stepOwner    initWizardStep = iota // enter owner id
	stepToken                          // enter community token
	stepValidate                       // validating token (spinner)
	stepDone
	stepError
)

// initResult holds the values collected by the wizard.
type initResult struct {
	OwnerID int64
	Token   string
	GroupID int64
}

type (
	tokenValidMsg   struct{ groupID int64 }
	tokenInvalidMsg struct{ err error }
)
type configWrittenMsg struct{ path string }

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

// initModel is the bubbletea model for the init wizard.
type initModel struct {
	step           initWizardStep
	ownerInput     textinput.Model
	tokenInput     textinput.Model
	spinner        spinner.Model
	result         initResult
	validationErr  string
	configPath     string
	secretStore    secrets.Store
	errFinal       error
	forceOverwrite bool
}

func newInitModel(store secrets.Store) initModel {
	owner := textinput.New()
	owner.Placeholder = "numeric VK user id, e.g. 1234567"
	owner.CharLimit = 20
	owner.Focus()

	token := textinput.New()
	token.Placeholder = "paste community token here"
	token.EchoMode = textinput.EchoPassword
	token.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return initModel{
		step:        stepOwner,
		ownerInput:  owner,
		tokenInput:  token,
		spinner:     sp,
		secretStore: store,
	}
}

func (m initModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m initModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tokenValidMsg:
		m.result.GroupID = msg.groupID
		return m, writeConfigCmd(m.result, m.secretStore, m.forceOverwrite)

	case tokenInvalidMsg:
		m.validationErr = msg.err.Error()
		m.step = stepToken
		m.tokenInput.Focus()
		return m, nil

	case configWrittenMsg:
		m.step = stepDone
		m.configPath = msg.path
		return m, tea.Quit

	case error:
		m.step = stepError
		m.errFinal = msg
		return m, tea.Quit
	}

	return m, nil
}

func (m initModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.step {
	case stepOwner:
		return m.handleOwnerInput(msg)
	case stepToken:
		return m.handleTokenInput(msg)
	}
	return m, nil
}

func (m initModel) handleOwnerInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		var cmd tea.Cmd
		m.ownerInput, cmd = m.ownerInput.Update(msg)
		return m, cmd
	}

	id, err := strconv.ParseInt(strings.TrimSpace(m.ownerInput.Value()), 10, 64)
	if err != nil || id <= 0 {
		m.validationErr = "owner id must be a positive number"
		return m, nil
	}
	m.result.OwnerID = id
	m.validationErr = ""
	m.step = stepToken
	m.ownerInput.Blur()
	m.tokenInput.SetValue("")
	m.tokenInput.Focus()
	return m, textinput.Blink
}

func (m initModel) handleTokenInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		var cmd tea.Cmd
		m.tokenInput, cmd = m.tokenInput.Update(msg)
		return m, cmd
	}

	token := strings.TrimSpace(m.tokenInput.Value())
	if token == "" {
		m.validationErr = "community token must not be empty"
		return m, nil
	}
	m.result.Token = token
	m.validationErr = ""
	m.step = stepValidate
	return m, tea.Batch(m.spinner.Tick, validateTokenCmd(token))
}

func (m initModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("  Gridkeeper Setup  ") + "\n\n")

	switch m.step {
	case stepOwner:
		b.WriteString(promptStyle.Render("Step 1/2: Bot owner") + "\n\n")
		b.WriteString(m.ownerInput.View() + "\n")
		m.writeValidationErr(&b)
		b.WriteString("\n" + dimStyle.Render("enter to continue  ctrl+c to quit"))

	case stepToken:
		b.WriteString(promptStyle.Render("Step 2/2: VK community token") + "\n\n")
		b.WriteString(m.tokenInput.View() + "\n")
		m.writeValidationErr(&b)
		b.WriteString("\n" + dimStyle.Render("enter to continue  ctrl+c to quit"))

	case stepValidate:
		b.WriteString(m.spinner.View() + " Validating community token…\n")

	case stepDone:
		b.WriteString(successStyle.Render("  Setup complete!  ") + "\n\n")
		if m.configPath != "" {
			b.WriteString(dimStyle.Render("Config written to: "+m.configPath) + "\n")
		}
		b.WriteString(dimStyle.Render(fmt.Sprintf("Community: %d", m.result.GroupID)) + "\n\n")
		b.WriteString("Run " + promptStyle.Render("gridkeeper start") + " to start the bot.\n")
		b.WriteString("Run " + promptStyle.Render("gridkeeper doctor") + " to verify setup.\n")

	case stepError:
		b.WriteString(errorStyle.Render("Setup failed: "+m.errFinal.Error()) + "\n")
	}

	return boxStyle.Render(b.String())
}

func (m initModel) writeValidationErr(b *strings.Builder) {
	if m.validationErr != "" {
		b.WriteString("\n" + errorStyle.Render("  "+m.validationErr) + "\n")
	}
}

func validateTokenCmd(token string) tea.Cmd {
	return func() tea.Msg {
		groupID, err := validateToken(context.Background(), token)
		if err != nil {
			return tokenInvalidMsg{err: err}
		}
		return tokenValidMsg{groupID: groupID}
	}
}

func writeConfigCmd(result initResult, store secrets.Store, forceOverwrite bool) tea.Cmd {
	return func() tea.Msg {
		path, err := storeSecretAndWriteConfig(result, store, forceOverwrite)
		if err != nil {
			return err
		}
		return configWrittenMsg{path: path}
	}
}

type initConfigFile struct {
	OwnerID int64 `yaml:"owner_id"`
	VK      struct {
		Token   string `yaml:"token"`
		GroupID int64  `yaml:"group_id"`
	} `yaml:"vk"`
	Storage struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
	} `yaml:"storage"`
	Networking struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"networking"`
}

// GenerateConfigYAML renders the config init writes. The token is always
// a keyring reference; the value itself goes to the secret store.
func GenerateConfigYAML(result initResult, dbPath string) (string, error) {
	var f initConfigFile
	f.OwnerID = result.OwnerID
	f.VK.Token = secrets.TokenURI()
	f.VK.GroupID = result.GroupID
	f.Storage.Backend = "sqlite"
	f.Storage.Path = dbPath
	f.Networking.Host = "127.0.0.1"
	f.Networking.Port = 10000

	body, err := yaml.Marshal(&f)
	if err != nil {
		return "", gkerr.Errorf(gkerr.CodeCLISetupFailure, "encoding config: %w", err)
	}
	return "# gridkeeper configuration, generated by gridkeeper init\n\n" + string(body), nil
}

// storeSecretAndWriteConfig stores the token in the keyring and writes the
// config next to the database it names. An existing file is only replaced
// when forceOverwrite is set.
func storeSecretAndWriteConfig(result initResult, store secrets.Store, forceOverwrite bool) (string, error) {
	cfgPath, err := configPathForWrite()
	if err != nil {
		return "", err
	}
	if !forceOverwrite {
		if _, statErr := os.Stat(cfgPath); statErr == nil {
			return "", gkerr.Errorf(gkerr.CodeConfigAlreadyExists,
				"config file already exists at %s; use --force to overwrite", cfgPath)
		}
	}

	if err := store.Store(secrets.DefaultService, secrets.TokenKey, result.Token); err != nil {
		return "", gkerr.Errorf(gkerr.CodeSecretStoreFailure, "storing VK token: %w", err)
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", gkerr.Errorf(gkerr.CodeConfigLoadReadFailure, "creating config directory %s: %w", dir, err)
	}

	body, err := GenerateConfigYAML(result, filepath.Join(dir, "bot.sqlite"))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		return "", gkerr.Errorf(gkerr.CodeConfigLoadReadFailure, "writing config to %s: %w", cfgPath, err)
	}

	return cfgPath, nil
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup wizard",
		Long: `Run an interactive wizard that asks for the owner's VK id and the
community token, validates the token against VK and writes
~/.config/gridkeeper/gridkeeper.yaml.

The token is stored in the OS keyring and referenced as
keyring://gridkeeper/vk-token; it is never written to the file.

Without a terminal, init writes a commented template instead.`,
		RunE: runInit,
	}

	cmd.Flags().Bool("force", false, "Overwrite existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isTerminal(f) {
		return runInitTemplate(cmd)
	}

	forceOverwrite, _ := cmd.Flags().GetBool("force")

	m := newInitModel(secretStoreFactory())
	m.forceOverwrite = forceOverwrite

	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return gkerr.Errorf(gkerr.CodeCLISetupFailure, "init wizard error: %w", err)
	}

	fm, ok := finalModel.(initModel)
	if !ok {
		return gkerr.New(gkerr.CodeCLISetupFailure, "unexpected model type after wizard")
	}
	if fm.errFinal != nil {
		return gkerr.Errorf(gkerr.CodeCLISetupFailure, "init failed: %w", fm.errFinal)
	}
	if fm.step == stepDone {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", fm.configPath)
	}
	return nil
}

func runInitTemplate(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	if path := config.BootstrapConfig(); path != "" {
		_, _ = fmt.Fprintf(out, "No terminal detected; wrote a config template to %s.\n", path)
		_, _ = fmt.Fprintln(out, "Set owner_id, then store the token with: gridkeeper secret set < token.txt")
		return nil
	}

	path, err := config.DefaultConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		_, _ = fmt.Fprintf(out, "Config already exists at %s; edit it directly.\n", path)
		return nil
	}
	return gkerr.Errorf(gkerr.CodeCLISetupFailure, "could not write config template to %s", path)
}

// isTerminal reports whether f is a terminal file descriptor.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
