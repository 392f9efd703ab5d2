// Package offer renders a single offer card and drives its activation
// lifecycle: offer, confirm, loading and activated, with a one-second
// countdown that falls back to offer when the code expires.
package offer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/kahan44/airdine/internal/api"
	"github.com/kahan44/airdine/internal/keys"
	"github.com/kahan44/airdine/internal/model"
	"github.com/kahan44/airdine/internal/theme"
)

// State is the activation lifecycle state of a card.
type State int

const (
	StateOffer State = iota
	StateConfirm
	StateLoading
	StateActivated
)

func (s State) String() string {
	switch s {
	case StateOffer:
		return "offer"
	case StateConfirm:
		return "confirm"
	case StateLoading:
		return "loading"
	case StateActivated:
		return "activated"
	default:
		return "unknown"
	}
}

// Error messages shown on the card.
const (
	msgLoginRequired = "Log in required"
	msgFailed        = "Failed to activate offer"
	msgCopied        = "Copied"
	msgExpired       = "Activation code already expired"
)

// errAlreadyExpired reports a code whose expiry had passed by local time
// when it arrived.
var errAlreadyExpired = errors.New("activation already expired")

// copiedFor is how long the "Copied" notice stays up.
const copiedFor = 2 * time.Second

// Activator performs the remote activation. *api.Client implements it.
type Activator interface {
	ActivateOffer(ctx context.Context, offerID int64) (*model.ActivationResponse, bool, error)
}

// Store is the part of the activation store a card reads and writes.
// *activation.Store implements it.
type Store interface {
	Get(offerID int64) (model.ActivationRecord, bool)
	Activate(ctx context.Context, offerID int64, p model.ActivationPayload) error
	RemainingSeconds(offerID int64) int
	Prune(ctx context.Context) (int, error)
}

// TickMsg advances the countdown of the card with the matching ID.
// Ticks from an older generation are ignored.
type TickMsg struct {
	ID  int
	Gen int
}

// ActivatedMsg is emitted when the card obtains a fresh activation code.
type ActivatedMsg struct {
	OfferID int64
	Code    string
}

// ExpiredMsg is emitted when a card's countdown reaches zero.
type ExpiredMsg struct {
	OfferID int64
}

// BackMsg asks the parent to close the card.
type BackMsg struct{}

type activateResultMsg struct {
	id     int
	req    int
	record model.ActivationRecord
	err    error
}

type adoptedMsg struct {
	id int
}

type copyResetMsg struct {
	id  int
	gen int
}

var lastID int64

func nextID() int {
	return int(atomic.AddInt64(&lastID, 1))
}

// confirmBinding keeps the huh value pointer valid across model copies.
type confirmBinding struct {
	confirmed bool
}

// Model is the Bubble Tea model for one offer card.
type Model struct {
	id     int
	offer  model.Offer
	store  Store
	client Activator
	keys   *keys.KeyMap
	log    zerolog.Logger
	copyFn func(string) error

	state     State
	remaining int
	code      string
	errMsg    string

	// gen invalidates pending countdown ticks when bumped.
	gen int

	// req identifies the in-flight activation; cancel aborts it.
	req    int
	cancel context.CancelFunc

	confirm *huh.Form
	binding *confirmBinding
	spinner spinner.Model

	copied  bool
	copyGen int

	closed        bool
	width, height int
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the card logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Model) { m.log = log.With().Str("component", "offer").Logger() }
}

// WithClipboard replaces the clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) { m.copyFn = fn }
}

// WithKeys sets the key bindings.
func WithKeys(k *keys.KeyMap) Option {
	return func(m *Model) { m.keys = k }
}

// New creates a card for o. A card whose offer already has an active
// record starts in the activated state.
func New(o model.Offer, s Store, client Activator, opts ...Option) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		id:      nextID(),
		offer:   o,
		store:   s,
		client:  client,
		keys:    keys.DefaultKeyMap(),
		log:     zerolog.Nop(),
		copyFn:  clipboard.WriteAll,
		state:   StateOffer,
		binding: &confirmBinding{},
		spinner: sp,
		width:   80,
		height:  24,
	}
	for _, opt := range opts {
		opt(&m)
	}

	if rec, ok := s.Get(o.ID); ok {
		m.state = StateActivated
		m.code = rec.Code
		m.remaining = s.RemainingSeconds(o.ID)
	}
	return m
}

// Init starts the countdown of a restored activation, or records a pending
// activation the backend reported with the offer.
func (m Model) Init() tea.Cmd {
	if m.state == StateActivated {
		return m.tick()
	}
	return m.adoptBackendActivation()
}

// Update handles messages for the card.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TickMsg:
		return m.handleTick(msg)

	case activateResultMsg:
		return m.handleResult(msg)

	case adoptedMsg:
		if msg.id != m.id || m.closed || m.state != StateOffer {
			return m, nil
		}
		cmd := m.enterActivated()
		return m, cmd

	case copyResetMsg:
		if msg.id == m.id && msg.gen == m.copyGen {
			m.copied = false
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != StateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.state == StateConfirm {
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.state {
	case StateConfirm:
		if key.Matches(msg, m.keys.Back) {
			m.Cancel()
			return m, nil
		}
		return m.updateConfirm(msg)

	case StateOffer:
		switch {
		case key.Matches(msg, m.keys.Activate), key.Matches(msg, m.keys.Select):
			cmd := m.Request()
			return m, cmd
		case key.Matches(msg, m.keys.Back):
			return m, back
		}

	case StateActivated:
		switch {
		case key.Matches(msg, m.keys.Copy):
			cmd := m.Copy()
			return m, cmd
		case key.Matches(msg, m.keys.Back):
			return m, back
		}

	case StateLoading:
		if key.Matches(msg, m.keys.Back) {
			return m, back
		}
	}
	return m, nil
}

func back() tea.Msg { return BackMsg{} }

// Request moves offer to confirm. It is ignored in any other state, and
// when the store already holds an active record for the offer the card
// shows that activation instead.
func (m *Model) Request() tea.Cmd {
	if m.state != StateOffer || m.closed {
		return nil
	}
	if _, ok := m.store.Get(m.offer.ID); ok {
		return m.enterActivated()
	}

	m.errMsg = ""
	m.state = StateConfirm
	m.binding.confirmed = true
	m.confirm = m.buildConfirmForm()
	return m.confirm.Init()
}

// Cancel returns from confirm to offer without contacting the backend.
func (m *Model) Cancel() {
	if m.state != StateConfirm {
		return
	}
	m.state = StateOffer
	m.confirm = nil
}

// Confirm moves confirm to loading and issues the activation request.
func (m *Model) Confirm() tea.Cmd {
	if m.state != StateConfirm || m.closed {
		return nil
	}
	m.confirm = nil
	m.state = StateLoading
	m.errMsg = ""

	ctx, cancel := context.WithCancel(context.Background())
	m.req++
	m.cancel = cancel

	return tea.Batch(m.spinner.Tick, m.activate(ctx, m.req))
}

// activate runs the remote call and records the returned code. A request
// cancelled before the store write records nothing.
func (m Model) activate(ctx context.Context, req int) tea.Cmd {
	id, offerID := m.id, m.offer.ID
	client, st, log := m.client, m.store, m.log

	return func() tea.Msg {
		resp, _, err := client.ActivateOffer(ctx, offerID)
		if err == nil && (resp == nil || resp.Activation == nil) {
			err = errors.New("activation missing from response")
		}
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			return activateResultMsg{id: id, req: req, err: err}
		}

		if err := st.Activate(ctx, offerID, *resp.Activation); err != nil {
			if _, ok := st.Get(offerID); !ok {
				return activateResultMsg{id: id, req: req, err: err}
			}
			log.Warn().Err(err).Int64("offer_id", offerID).Msg("activation kept in memory only")
		}

		rec, ok := st.Get(offerID)
		if !ok {
			return activateResultMsg{id: id, req: req, err: errAlreadyExpired}
		}
		return activateResultMsg{id: id, req: req, record: rec}
	}
}

func (m Model) handleResult(msg activateResultMsg) (Model, tea.Cmd) {
	if msg.id != m.id || msg.req != m.req || m.closed || m.state != StateLoading {
		return m, nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	if msg.err != nil {
		m.state = StateOffer
		m.errMsg = errorText(msg.err)
		m.log.Error().Err(msg.err).Int64("offer_id", m.offer.ID).Msg("activation failed")
		return m, nil
	}

	m.log.Info().Int64("offer_id", m.offer.ID).Msg("offer activated")
	code := msg.record.Code
	offerID := m.offer.ID
	tick := m.enterActivated()
	return m, tea.Batch(
		tick,
		func() tea.Msg { return ActivatedMsg{OfferID: offerID, Code: code} },
	)
}

// errorText maps an activation failure to the message shown on the card.
func errorText(err error) string {
	var ve *api.ValidationError
	switch {
	case api.IsAuthError(err):
		return msgLoginRequired
	case errors.As(err, &ve) && ve.Message != "":
		return ve.Message
	case errors.Is(err, errAlreadyExpired):
		return msgExpired
	default:
		return msgFailed
	}
}

// enterActivated switches to activated from the store record and starts a
// new countdown generation.
func (m *Model) enterActivated() tea.Cmd {
	rec, ok := m.store.Get(m.offer.ID)
	if !ok {
		m.state = StateOffer
		return nil
	}
	m.state = StateActivated
	m.code = rec.Code
	m.remaining = m.store.RemainingSeconds(m.offer.ID)
	m.gen++
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	id, gen := m.id, m.gen
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return TickMsg{ID: id, Gen: gen}
	})
}

func (m Model) handleTick(msg TickMsg) (Model, tea.Cmd) {
	if msg.ID != m.id || msg.Gen != m.gen || m.closed || m.state != StateActivated {
		return m, nil
	}

	m.remaining = m.store.RemainingSeconds(m.offer.ID)
	if m.remaining > 0 {
		return m, m.tick()
	}

	m.state = StateOffer
	m.code = ""
	m.copied = false
	m.gen++
	m.log.Info().Int64("offer_id", m.offer.ID).Msg("activation expired")

	st, offerID, log := m.store, m.offer.ID, m.log
	return m, func() tea.Msg {
		if _, err := st.Prune(context.Background()); err != nil {
			log.Warn().Err(err).Msg("pruning expired activations")
		}
		return ExpiredMsg{OfferID: offerID}
	}
}

// adoptBackendActivation records the offer's pending user_activation when
// the store has none.
func (m Model) adoptBackendActivation() tea.Cmd {
	ua := m.offer.UserActivation
	if ua == nil || ua.Status != model.ActivationPending || ua.Code == "" {
		return nil
	}

	id, o, st, log := m.id, m.offer, m.store, m.log
	return func() tea.Msg {
		payload := *ua
		if payload.OfferTitle == "" {
			payload.OfferTitle = o.Title
		}
		if payload.RestaurantName == "" {
			payload.RestaurantName = o.RestaurantName
		}
		if err := st.Activate(context.Background(), o.ID, payload); err != nil {
			log.Warn().Err(err).Int64("offer_id", o.ID).Msg("adopting backend activation")
		}
		return adoptedMsg{id: id}
	}
}

// Copy writes the activation code to the clipboard.
func (m *Model) Copy() tea.Cmd {
	if m.state != StateActivated || m.code == "" {
		return nil
	}
	if err := m.copyFn(m.code); err != nil {
		m.log.Warn().Err(err).Msg("copying activation code")
		m.errMsg = "Copy failed"
		return nil
	}

	m.errMsg = ""
	m.copied = true
	m.copyGen++
	id, gen := m.id, m.copyGen
	return tea.Tick(copiedFor, func(time.Time) tea.Msg {
		return copyResetMsg{id: id, gen: gen}
	})
}

// Close tears the card down: the in-flight request is cancelled and any
// pending tick or result is ignored from now on.
func (m *Model) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Model) buildConfirmForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Activate %q?", m.offer.Title)).
				Description(
					"You will get a one-time code to show at " +
						m.offer.RestaurantName + ". It expires in a few minutes.",
				).
				Affirmative("Activate").
				Negative("Cancel").
				Value(&m.binding.confirmed),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirm == nil {
		return m, nil
	}

	mdl, cmd := m.confirm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirm = f
	}

	switch m.confirm.State {
	case huh.StateCompleted:
		if m.binding.confirmed {
			cmd := m.Confirm()
			return m, cmd
		}
		m.Cancel()
		return m, nil
	case huh.StateAborted:
		m.Cancel()
		return m, nil
	}
	return m, cmd
}

// View renders the card for the current state.
func (m Model) View() string {
	var body string
	switch m.state {
	case StateConfirm:
		if m.confirm != nil {
			body = m.confirm.View()
		}
	case StateLoading:
		body = m.viewOffer() + "\n\n" + m.spinner.View() + " Activating..."
	case StateActivated:
		body = m.viewActivated()
	default:
		body = m.viewOffer()
		if m.errMsg != "" {
			body += "\n\n" + theme.ErrorStyle.Render(m.errMsg)
		}
		body += "\n\n" + theme.HelpStyle.Render("a activate | esc back")
	}

	return theme.DetailPanelStyle.
		Width(m.panelWidth()).
		Render(body)
}

func (m Model) viewOffer() string {
	o := m.offer
	lines := []string{
		theme.OfferTypeStyle(o.OfferType).Render(o.Headline()),
		lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(o.Title),
		theme.DimmedStyle.Render(o.RestaurantName),
	}
	if o.IsFeatured {
		lines[0] = theme.FeaturedBadgeStyle.Render("★ ") + lines[0]
	}
	if o.Description != "" {
		lines = append(lines, "", o.Description)
	}

	var meta []string
	if o.SavingsText != "" {
		meta = append(meta, o.SavingsText)
	}
	if o.MinimumOrderAmount != "" {
		meta = append(meta, "Min. order $"+o.MinimumOrderAmount)
	}
	meta = append(meta, o.ValidityLabel())
	if o.RemainingUses != nil {
		meta = append(meta, fmt.Sprintf("%d uses left", *o.RemainingUses))
	}
	lines = append(lines, "", theme.DimmedStyle.Render(strings.Join(meta, " · ")))

	return strings.Join(lines, "\n")
}

func (m Model) viewActivated() string {
	o := m.offer
	lines := []string{
		theme.NoticeStyle.Render("Offer activated"),
		lipgloss.NewStyle().Bold(true).Render(o.Title) + theme.DimmedStyle.Render(" at "+o.RestaurantName),
		theme.CodeStyle.Render(m.code),
		"Expires in " + theme.CountdownStyle(m.remaining).Render(model.FormatCountdown(m.remaining)),
	}
	switch {
	case m.errMsg != "":
		lines = append(lines, theme.ErrorStyle.Render(m.errMsg))
	case m.copied:
		lines = append(lines, theme.NoticeStyle.Render(msgCopied))
	}
	lines = append(lines, "",
		theme.HelpStyle.Render("Show this code to the restaurant staff. c copy | esc back"))
	return strings.Join(lines, "\n")
}

// SetSize updates the card dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) panelWidth() int {
	w := m.width - 4
	if w > 72 {
		w = 72
	}
	if w < 30 {
		w = 30
	}
	return w
}

func (m Model) formWidth() int {
	return m.panelWidth() - 4
}

// ID returns the card's instance identifier.
func (m Model) ID() int { return m.id }

// State returns the current lifecycle state.
func (m Model) State() State { return m.state }

// Offer returns the offer shown on the card.
func (m Model) Offer() model.Offer { return m.offer }

// Remaining returns the last computed countdown value in seconds.
func (m Model) Remaining() int { return m.remaining }

// Code returns the activation code while activated.
func (m Model) Code() string { return m.code }

// Err returns the message of the last failure, if any.
func (m Model) Err() string { return m.errMsg }

// Copied reports whether the "Copied" notice is showing.
func (m Model) Copied() bool { return m.copied }
