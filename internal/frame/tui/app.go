package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/project"
	"github.com/joshsegall/frame-sub002/internal/frame/recovery"
	"github.com/joshsegall/frame-sub002/internal/frame/registry"
	"github.com/joshsegall/frame-sub002/internal/frame/session"
	"github.com/joshsegall/frame-sub002/internal/frame/state"
	"github.com/joshsegall/frame-sub002/internal/frame/watch"
)

const (
	viewTrack  = "track"
	viewTracks = "tracks"
	viewInbox  = "inbox"
	viewRecent = "recent"
)

const tickInterval = 500 * time.Millisecond

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// inputPurpose says what an open text input commits to.
type inputPurpose int

const (
	inputNone inputPurpose = iota
	inputAddBottom
	inputAddAfter
	inputAddTop
	inputAddSubtask
	inputEditTitle
	inputInboxAdd
	inputInboxTitle
)

// confirmState is a pending yes/no prompt.
type confirmState struct {
	prompt string
	apply  func(m *Model)
}

// conflictState holds an abandoned edit buffer after an external change
// touched the task being edited.
type conflictState struct {
	taskID string
	buffer string
}

// Model is the bubbletea model for the interactive editor.
type Model struct {
	sess    *session.Session
	ui      *state.UIState
	watcher *watch.Watcher
	keys    keyMap

	view        string
	activeTrack string

	cursor   int
	expanded map[string]map[string]bool

	tracksCursor int
	inboxCursor  int
	recentCursor int

	input        textinput.Model
	inputPurpose inputPurpose
	inputTaskID  string

	searching bool
	search    textinput.Model
	matches   []searchMatch
	matchSel  int

	confirm   *confirmState
	conflict  *conflictState
	showHelp  bool
	moveMode  bool
	triaging  bool
	quitArmed bool

	status string
	width  int
	height int
}

// NewModel builds the model over a loaded project, restoring persisted
// UI state when present.
func NewModel(p *project.Project) *Model {
	ui, ok := state.Read(p.FrameDir)
	if !ok {
		ui = &state.UIState{View: viewTrack}
	}

	input := textinput.New()
	input.CharLimit = 200
	search := textinput.New()
	search.Prompt = "/"
	search.CharLimit = 100

	m := &Model{
		sess:     session.New(p),
		ui:       ui,
		keys:     newKeyMap(),
		view:     ui.View,
		expanded: make(map[string]map[string]bool),
		input:    input,
		search:   search,
	}
	if m.view == "" {
		m.view = viewTrack
	}
	m.activeTrack = ui.ActiveTrack
	if m.sess.Project.Track(m.activeTrack) == nil {
		m.activeTrack = ""
	}
	if m.activeTrack == "" {
		for _, tc := range p.Config.Tracks {
			if tc.State == "active" {
				m.activeTrack = tc.ID
				break
			}
		}
	}
	if m.activeTrack != "" {
		ts := ui.Track(m.activeTrack)
		m.cursor = ts.Cursor
	}
	return m
}

// Run opens the project at or above dir and starts the interactive
// editor. UI state is persisted on exit.
func Run(dir string) error {
	root, err := project.Discover(dir)
	if err != nil {
		return err
	}
	p, err := project.Load(root)
	if err != nil {
		return err
	}
	registry.Register(p.Config.Project.Name, root)
	registry.TouchTUI(root)

	m := NewModel(p)
	if w, werr := watch.Start(p.FrameDir); werr == nil {
		m.watcher = w
		defer w.Close()
	}

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), watchCmd(m.watcher))
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		for _, trackID := range m.sess.FlushExpired(time.Time(msg)) {
			m.saveTrack(trackID)
		}
		m.clampCursors()
		return m, tickCmd()

	case watchMsg:
		m.handleExternalChange(msg.paths)
		return m, watchCmd(m.watcher)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// handleExternalChange reloads changed files and abandons any edit in
// progress on a task that was modified externally. The edit buffer is
// kept for display; the model is never merged.
func (m *Model) handleExternalChange(paths []string) {
	var editing *session.EditTarget
	if m.inputPurpose == inputEditTitle {
		editing = &session.EditTarget{TrackID: m.activeTrack, TaskID: m.inputTaskID}
	}
	conflictID, conflicted := m.sess.ReloadChangedFiles(paths, editing)
	if conflicted {
		m.conflict = &conflictState{taskID: conflictID, buffer: m.input.Value()}
		m.closeInput()
	}

	// Config edits are not handled by the session reloader.
	for _, path := range paths {
		if filepath.Base(path) != "project.toml" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		config := model.DefaultConfig()
		if _, err := toml.Decode(string(data), &config); err != nil {
			continue
		}
		m.sess.Project.Config = config
		m.sess.Project.ConfigText = string(data)
	}
	m.clampCursors()
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.shutdown()
		return m, tea.Quit
	}

	if m.conflict != nil {
		// The abandoned buffer goes to the recovery log on dismissal so
		// the typed text survives somewhere.
		if m.conflict.buffer != "" {
			recovery.Log(m.sess.Project.FrameDir, recovery.Entry{
				Timestamp:   time.Now(),
				Category:    recovery.CategoryConflict,
				Description: "edit abandoned after external change",
				Fields: []recovery.Field{
					{Key: "task", Value: m.conflict.taskID},
					{Key: "track", Value: m.activeTrack},
				},
				Body: m.conflict.buffer,
			})
		}
		m.conflict = nil
		return m, nil
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.confirm != nil {
		return m.handleConfirmKey(msg)
	}
	if m.inputPurpose != inputNone {
		return m.handleInputKey(msg)
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}
	if m.triaging {
		return m.handleTriageKey(msg)
	}

	if m.quitArmed {
		m.quitArmed = false
		if msg.String() == "Q" {
			m.shutdown()
			return m, tea.Quit
		}
	} else if msg.String() == "Q" {
		m.quitArmed = true
		m.status = "press Q again to quit"
		return m, nil
	}

	if msg.String() == "?" {
		m.showHelp = true
		return m, nil
	}

	switch m.view {
	case viewTracks:
		m.handleTracksKey(msg)
	case viewInbox:
		m.handleInboxKey(msg)
	case viewRecent:
		m.handleRecentKey(msg)
	default:
		m.handleTrackKey(msg)
	}
	return m, nil
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.confirm
	m.confirm = nil
	switch msg.String() {
	case "y", "Y", "enter":
		if c.apply != nil {
			c.apply(m)
		}
	}
	return m, nil
}

// switchView flushes pending grace-period moves before leaving the
// current view, then persists the old view's cursor.
func (m *Model) switchView(view string) {
	m.flushPending()
	m.storeTrackState()
	m.view = view
	m.status = ""
	m.clampCursors()
}

func (m *Model) flushPending() {
	for _, trackID := range m.sess.FlushAll() {
		m.saveTrack(trackID)
	}
}

// switchTrack changes the active track, restoring its saved cursor.
func (m *Model) switchTrack(trackID string) {
	if trackID == m.activeTrack && m.view == viewTrack {
		return
	}
	m.flushPending()
	m.storeTrackState()
	m.activeTrack = trackID
	m.view = viewTrack
	ts := m.ui.Track(trackID)
	m.cursor = ts.Cursor
	m.clampCursors()
}

// activeTracks returns the configured tracks in state "active".
func (m *Model) activeTracks() []model.TrackConfig {
	var out []model.TrackConfig
	for _, tc := range m.sess.Project.Config.Tracks {
		if tc.State == "active" {
			out = append(out, tc)
		}
	}
	return out
}

func (m *Model) nextTrack() {
	tracks := m.activeTracks()
	if len(tracks) == 0 {
		return
	}
	cur := 0
	for i, tc := range tracks {
		if tc.ID == m.activeTrack {
			cur = i
			break
		}
	}
	m.switchTrack(tracks[(cur+1)%len(tracks)].ID)
}

func (m *Model) saveTrack(trackID string) {
	if err := m.sess.SaveTrack(trackID); err != nil {
		m.status = err.Error()
	}
}

func (m *Model) saveInbox() {
	if err := m.sess.SaveInbox(); err != nil {
		m.status = err.Error()
	}
}

// storeTrackState copies the in-memory cursor and fold state for the
// active track into the persisted UI state.
func (m *Model) storeTrackState() {
	if m.activeTrack == "" {
		return
	}
	ts := m.ui.Track(m.activeTrack)
	ts.Cursor = m.cursor
	ts.Expanded = m.expandedFor(m.activeTrack)
	m.ui.SetTrack(m.activeTrack, *ts)
}

func (m *Model) expandedFor(trackID string) map[string]bool {
	if m.expanded[trackID] == nil {
		ex := make(map[string]bool)
		ts := m.ui.Track(trackID)
		for id, on := range ts.Expanded {
			ex[id] = on
		}
		m.expanded[trackID] = ex
	}
	return m.expanded[trackID]
}

// shutdown commits pending moves and persists UI state.
func (m *Model) shutdown() {
	m.flushPending()
	m.storeTrackState()
	m.ui.View = m.view
	m.ui.ActiveTrack = m.activeTrack
	if err := state.Write(m.sess.Project.FrameDir, m.ui); err != nil {
		m.status = err.Error()
	}
}

func (m *Model) closeInput() {
	m.inputPurpose = inputNone
	m.inputTaskID = ""
	m.input.Reset()
	m.input.Blur()
}

func (m *Model) openInput(purpose inputPurpose, prompt, initial string) {
	m.inputPurpose = purpose
	m.input.Prompt = prompt
	m.input.SetValue(initial)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) clampCursors() {
	rows := m.taskRows()
	if m.cursor >= len(rows) {
		m.cursor = len(rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if n := len(m.activeTracksAndRest()); m.tracksCursor >= n && n > 0 {
		m.tracksCursor = n - 1
	}
	if inbox := m.sess.Project.Inbox; inbox != nil {
		if m.inboxCursor >= len(inbox.Items) && len(inbox.Items) > 0 {
			m.inboxCursor = len(inbox.Items) - 1
		}
	}
	if m.inboxCursor < 0 {
		m.inboxCursor = 0
	}
	if n := len(m.collectRecent()); m.recentCursor >= n && n > 0 {
		m.recentCursor = n - 1
	}
	if m.recentCursor < 0 {
		m.recentCursor = 0
	}
}

// activeTracksAndRest lists active tracks first, then shelved, for the
// tracks overview.
func (m *Model) activeTracksAndRest() []model.TrackConfig {
	var out []model.TrackConfig
	for _, tc := range m.sess.Project.Config.Tracks {
		if tc.State == "active" {
			out = append(out, tc)
		}
	}
	for _, tc := range m.sess.Project.Config.Tracks {
		if tc.State == "shelved" {
			out = append(out, tc)
		}
	}
	return out
}

// pendingStatus renders the grace-period countdowns for the footer.
func (m *Model) pendingStatus(now time.Time) string {
	pms := m.sess.PendingMoves()
	if len(pms) == 0 {
		return ""
	}
	parts := ""
	for _, pm := range pms {
		secs := int(pm.Deadline.Sub(now).Seconds()) + 1
		if secs < 0 {
			secs = 0
		}
		var dest string
		switch pm.Kind {
		case session.MoveToDone:
			dest = "done"
		case session.MoveToParked:
			dest = "parked"
		default:
			dest = "backlog"
		}
		if parts != "" {
			parts += "  "
		}
		parts += fmt.Sprintf("%s → %s in %ds", pm.TaskID, dest, secs)
	}
	return parts
}
