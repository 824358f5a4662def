package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// tracker is the progress state shared between the renderer and the model.
type tracker struct {
	mu       sync.RWMutex
	stage    Stage
	current  int
	total    int
	feed     string
	errors   int
	warnings int
	lastErr  string
}

type snapshot struct {
	Stage    Stage
	Current  int
	Total    int
	Feed     string
	Errors   int
	Warnings int
	LastErr  string
}

func (t *tracker) update(ev ProgressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stage = ev.Stage
	t.current = ev.Current
	t.total = ev.Total
	if ev.Feed != "" {
		t.feed = ev.Feed
	}
}

func (t *tracker) addError(ev ErrorEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ev.IsWarn {
		t.warnings++
	} else {
		t.errors++
	}
	if ev.Err != nil {
		t.lastErr = ev.Err.Error()
	}
}

func (t *tracker) snapshot() snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return snapshot{
		Stage:    t.stage,
		Current:  t.current,
		Total:    t.total,
		Feed:     t.feed,
		Errors:   t.errors,
		Warnings: t.warnings,
		LastErr:  t.lastErr,
	}
}

// TUIRenderer draws a live progress panel with bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *ingestModel
	tracker *tracker
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. It fails when the output is not
// a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tr := &tracker{}
	model := newIngestModel(tr, cfg.Source)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tr,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	ctx, r.cancel = context.WithCancel(ctx)
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.tracker.update(event)
	r.send(progressMsg(event))
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.tracker.addError(event)
	r.send(errorMsg(event))
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.tracker.update(ProgressEvent{Stage: StageComplete})
	r.send(completeMsg(stats))
}

func (r *TUIRenderer) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Stop implements Renderer. It waits up to two seconds for the program to
// exit so that an unresponsive terminal cannot hang the process.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	p, started := r.program, r.started
	r.mu.Unlock()

	if !started {
		return nil
	}
	p.Quit()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	r.cancel()
	return nil
}

type (
	progressMsg ProgressEvent
	errorMsg    ErrorEvent
	completeMsg CompletionStats
	tickMsg     time.Time
)

// pipeline lists the stages shown in the header, in run order.
var pipeline = []Stage{StageFetching, StageParsing, StageStoring, StageIndexing}

type ingestModel struct {
	tracker  *tracker
	source   string
	width    int
	quitting bool
	complete bool
	stats    CompletionStats
	spinner  spinner.Model
	bar      progress.Model
	styles   Styles
}

func newIngestModel(tr *tracker, source string) *ingestModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	return &ingestModel{
		tracker: tr,
		source:  source,
		width:   80,
		spinner: s,
		bar: progress.New(
			progress.WithSolidFill(ColorAccent),
			progress.WithWidth(50),
			progress.WithoutPercentage(),
		),
		styles: DefaultStyles(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m *ingestModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

// Update implements tea.Model.
func (m *ingestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if s := msg.String(); s == "ctrl+c" || s == "q" {
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(msg.Width-20, 20)
	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit
	case tickMsg:
		return m, tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *ingestModel) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	snap := m.tracker.snapshot()
	width := max(m.width-4, 40)

	title := "hemin ingest"
	if m.source != "" {
		title += " • " + m.source
	}

	sections := []string{
		m.renderStages(snap.Stage),
		m.styles.Border.Render(strings.Repeat("─", width)),
		m.renderProgress(snap),
	}
	if snap.Feed != "" {
		sections = append(sections, m.styles.Dim.Render(truncate(snap.Feed, width-2)))
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDarkGray)).
		Padding(0, 1).
		Width(width)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(title),
		panel.Render(strings.Join(sections, "\n")),
	) + "\n" + m.renderStatus(snap, width)
}

func (m *ingestModel) renderStages(current Stage) string {
	parts := make([]string, 0, len(pipeline))
	for _, s := range pipeline {
		switch {
		case s < current:
			parts = append(parts, m.styles.Done.Render("● "+s.String()))
		case s == current:
			parts = append(parts, m.styles.Active.Render(m.spinner.View()+" "+s.String()))
		default:
			parts = append(parts, m.styles.Dim.Render("○ "+s.String()))
		}
	}
	return strings.Join(parts, m.styles.Dim.Render(" → "))
}

func (m *ingestModel) renderProgress(snap snapshot) string {
	if snap.Total == 0 {
		return fmt.Sprintf("%s %s...", m.spinner.View(), snap.Stage)
	}
	ratio := float64(snap.Current) / float64(snap.Total)
	return fmt.Sprintf("%s  %s\n%s",
		m.bar.ViewAs(ratio),
		m.styles.Active.Render(fmt.Sprintf("%3.0f%%", ratio*100)),
		m.styles.Label.Render(fmt.Sprintf("%d / %d", snap.Current, snap.Total)))
}

func (m *ingestModel) renderStatus(snap snapshot, width int) string {
	var parts []string
	if snap.Warnings > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", snap.Warnings)))
	}
	if snap.Errors > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("✗ %d failed", snap.Errors)))
	}
	parts = append(parts, m.styles.Dim.Render("q to quit"))

	status := strings.Join(parts, m.styles.Dim.Render("  │  "))
	if snap.LastErr != "" {
		status += "\n" + m.styles.Dim.Render(truncate(snap.LastErr, width))
	}
	return status
}

func (m *ingestModel) renderComplete() string {
	s := m.stats
	label := m.styles.Label.Render
	value := func(v any) string { return m.styles.Active.Render(fmt.Sprint(v)) }

	lines := []string{
		m.styles.Success.Render("✓ Ingest complete"),
		"",
		label("Feeds:    ") + value(s.Feeds),
		label("Shows:    ") + value(s.Shows),
		label("Episodes: ") + value(s.Episodes),
		label("Duration: ") + value(formatDuration(s.Duration)),
	}
	if s.Failed > 0 {
		lines = append(lines, "", m.styles.Error.Render(fmt.Sprintf("✗ %d feeds failed", s.Failed)))
	}
	if s.Warnings > 0 {
		lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", s.Warnings)))
	}
	if s.Degraded {
		lines = append(lines, m.styles.Warning.Render("⚠ index rejected writes, see the log"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccent)).
		Padding(1, 2).
		Width(max(m.width-4, 40)).
		Render(strings.Join(lines, "\n")) + "\n"
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Round(time.Second).Seconds()))
	case d < time.Hour:
		d = d.Round(time.Second)
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		d = d.Round(time.Minute)
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// truncate keeps the tail of s, which holds the distinguishing part of a URL.
func truncate(s string, limit int) string {
	r := []rune(s)
	if limit < 4 || len(r) <= limit {
		return s
	}
	return "..." + string(r[len(r)-limit+3:])
}

var _ Renderer = (*TUIRenderer)(nil)
