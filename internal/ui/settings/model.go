// Package settings edits the backend URL and the bearer tokens.
package settings

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/kahan44/airdine/internal/api"
	"github.com/kahan44/airdine/internal/credential"
	"github.com/kahan44/airdine/internal/model"
	"github.com/kahan44/airdine/internal/theme"
)

// Mode represents the current state of the settings view.
type Mode int

const (
	ModeForm   Mode = iota // Editing
	ModeSaving             // Writing config and checking the backend
	ModeResult             // Showing the outcome
)

// checkTimeout bounds the connection check after saving.
const checkTimeout = 15 * time.Second

// SettingsSavedMsg signals that the configuration was written.
type SettingsSavedMsg struct {
	BaseURL string
}

// SettingsDoneMsg signals the settings view should close.
type SettingsDoneMsg struct{}

// savedInternalMsg carries the outcome of a save.
type savedInternalMsg struct {
	baseURL  string
	err      error
	checkErr error
}

// TokenWriter persists credentials. *credential.Store implements it.
type TokenWriter interface {
	Set(key, value string) error
}

// Backend is the client the settings apply to. *api.Client implements it.
type Backend interface {
	SetBaseURL(baseURL string)
	Activations(ctx context.Context) ([]model.ActivationPayload, error)
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	baseURL string
	access  string
	refresh string
}

// Model is the Bubble Tea model for the settings view.
type Model struct {
	mode       Mode
	cfg        *model.AppConfig
	configPath string
	tokens     TokenWriter
	backend    Backend

	form *huh.Form
	fb   *formBindings

	spinner  spinner.Model
	saveErr  error
	checkErr error

	width, height int
}

// New creates a settings view that writes cfg to configPath and tokens to
// the keyring.
func New(cfg *model.AppConfig, configPath string, tokens TokenWriter, backend Backend, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:       ModeForm,
		cfg:        cfg,
		configPath: configPath,
		tokens:     tokens,
		backend:    backend,
		fb:         &formBindings{},
		spinner:    sp,
		width:      width,
		height:     height,
	}
}

// Init prepares a fresh form prefilled with the current base URL.
func (m *Model) Init() tea.Cmd {
	m.mode = ModeForm
	m.saveErr = nil
	m.checkErr = nil
	m.fb.baseURL = m.cfg.API.BaseURL
	m.fb.access = ""
	m.fb.refresh = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case savedInternalMsg:
		m.mode = ModeResult
		m.saveErr = msg.err
		m.checkErr = msg.checkErr
		if msg.err != nil {
			return m, nil
		}
		m.cfg.API.BaseURL = msg.baseURL
		return m, func() tea.Msg { return SettingsSavedMsg{BaseURL: msg.baseURL} }

	case spinner.TickMsg:
		if m.mode == ModeSaving {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeResult:
			switch msg.String() {
			case "enter", "esc":
				return m, done
			case "e":
				cmd := m.Init()
				return m, cmd
			}
			return m, nil
		case ModeSaving:
			return m, nil
		case ModeForm:
			if msg.String() == "esc" {
				return m, done
			}
		}
	}

	if m.mode == ModeForm {
		return m.updateForm(msg)
	}
	return m, nil
}

func done() tea.Msg { return SettingsDoneMsg{} }

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backend URL").
				Description("AirDine API root, including /api").
				Placeholder(model.DefaultBaseURL).
				Value(&m.fb.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Access token").
				Description("Leave empty to keep the stored token").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.access),
			huh.NewInput().
				Title("Refresh token").
				Description("Used to renew the access token when it expires").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.refresh),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.mode = ModeSaving
		return m, tea.Batch(m.spinner.Tick, m.save())
	case huh.StateAborted:
		return m, done
	}
	return m, cmd
}

// save writes the config file and tokens, points the backend at the new
// URL and checks that it answers an authenticated request.
func (m Model) save() tea.Cmd {
	cfg := *m.cfg
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(m.fb.baseURL), "/")
	access := strings.TrimSpace(m.fb.access)
	refresh := strings.TrimSpace(m.fb.refresh)
	path, tokens, backend := m.configPath, m.tokens, m.backend

	return func() tea.Msg {
		if err := model.SaveConfig(path, &cfg); err != nil {
			return savedInternalMsg{err: err}
		}
		if access != "" {
			if err := tokens.Set(credential.AccessTokenKey, access); err != nil {
				return savedInternalMsg{err: fmt.Errorf("saving access token: %w", err)}
			}
		}
		if refresh != "" {
			if err := tokens.Set(credential.RefreshTokenKey, refresh); err != nil {
				return savedInternalMsg{err: fmt.Errorf("saving refresh token: %w", err)}
			}
		}
		if backend == nil {
			return savedInternalMsg{baseURL: cfg.API.BaseURL}
		}
		backend.SetBaseURL(cfg.API.BaseURL)

		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		_, err := backend.Activations(ctx)
		return savedInternalMsg{baseURL: cfg.API.BaseURL, checkErr: err}
	}
}

// View renders the settings UI based on the current mode.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	switch m.mode {
	case ModeSaving:
		return style.Render(fmt.Sprintf("%s Saving and contacting backend...", m.spinner.View()))
	case ModeResult:
		return style.Render(m.viewResult())
	default:
		if m.form == nil {
			return ""
		}
		return style.Render(m.form.View())
	}
}

func (m Model) viewResult() string {
	hint := theme.DimmedStyle.Render("e edit again | enter/esc back")

	if m.saveErr != nil {
		return theme.ErrorStyle.Render("Could not save settings") + "\n\n" +
			m.saveErr.Error() + "\n\n" + hint
	}
	if m.checkErr != nil {
		msg := m.checkErr.Error()
		if api.IsAuthError(m.checkErr) {
			msg = "The backend rejected the tokens. Paste a fresh token pair."
		}
		return theme.NoticeStyle.Render("Settings saved") + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.ColorYellow).Render("Backend check failed: ") +
			msg + "\n\n" + hint
	}
	return theme.NoticeStyle.Render("Settings saved") + "\n\n" +
		"Connected to " + m.cfg.API.BaseURL + "\n\n" + hint
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Mode returns the current mode.
func (m Model) Mode() Mode { return m.mode }

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("URL must start with http:// or https://")
	}
	if parsed.Host == "" {
		return errors.New("URL must include a host (e.g., http://127.0.0.1:8000/api)")
	}
	return nil
}
