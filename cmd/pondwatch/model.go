package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Resanso/aquaseer-api/internal/sensor"
	"github.com/Resanso/aquaseer-api/internal/simulation"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Width(34)

	selectedCardStyle = cardStyle.
				BorderForeground(lipgloss.Color("170"))

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	statusStyles = map[sensor.Status]lipgloss.Style{
		sensor.StatusOnline:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		sensor.StatusOffline: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		sensor.StatusWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
)

type view int

const (
	viewList view = iota
	viewDetail
	viewAdd
)

const (
	fieldName = iota
	fieldLocation
	fieldSchedule
	fieldCount
)

type addForm struct {
	name     string
	location string
	schedule int
	focus    int
}

func (f addForm) selectedSchedule() sensor.Schedule {
	schedules := sensor.Schedules()
	return schedules[f.schedule%len(schedules)]
}

type model struct {
	api          *apiClient
	email        string
	password     string
	pollInterval time.Duration

	view     view
	sensors  []sensor.Record
	stats    sensor.Stats
	cursor   int
	detailID string
	history  []simulation.HistoryPoint
	form     addForm
	user     string
	message  string
	quitting bool
}

type sensorsMsg sensorsResponse
type historyMsg struct {
	id     string
	points []simulation.HistoryPoint
}
type addedMsg sensor.Record
type signedInMsg sessionResponse
type pollMsg struct{}
type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

func newModel(api *apiClient, email, password string, poll time.Duration) model {
	return model{
		api:          api,
		email:        email,
		password:     password,
		pollInterval: poll,
		form:         addForm{schedule: defaultScheduleIndex()},
	}
}

func defaultScheduleIndex() int {
	for i, s := range sensor.Schedules() {
		if s == sensor.DefaultSchedule {
			return i
		}
	}
	return 0
}

func (m model) Init() tea.Cmd {
	if m.api.token == "" && m.email != "" {
		return signIn(m.api, m.email, m.password)
	}
	return tea.Batch(fetchSensors(m.api), m.poll())
}

func (m model) poll() tea.Cmd {
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg { return pollMsg{} })
}

func signIn(api *apiClient, email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		sess, err := api.signIn(ctx, email, password)
		if err != nil {
			return errMsg{fmt.Errorf("sign in: %w", err)}
		}
		return signedInMsg(sess)
	}
}

func fetchSensors(api *apiClient) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp, err := api.sensors(ctx)
		if err != nil {
			return errMsg{err}
		}
		return sensorsMsg(resp)
	}
}

func fetchHistory(api *apiClient, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		points, err := api.history(ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return historyMsg{id: id, points: points}
	}
}

func submitSensor(api *apiClient, name, location string, schedule sensor.Schedule) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		rec, err := api.addSensor(ctx, name, location, schedule)
		if err != nil {
			return errMsg{err}
		}
		return addedMsg(rec)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.view {
		case viewList:
			return m.updateList(msg)
		case viewDetail:
			return m.updateDetail(msg)
		case viewAdd:
			return m.updateAdd(msg)
		}

	case signedInMsg:
		m.api.token = msg.Token
		m.user = msg.User.DisplayName
		return m, tea.Batch(fetchSensors(m.api), m.poll())

	case sensorsMsg:
		m.sensors = msg.Sensors
		m.stats = msg.Stats
		if m.cursor >= len(m.sensors) {
			m.cursor = max(len(m.sensors)-1, 0)
		}

	case historyMsg:
		if msg.id == m.detailID {
			m.history = msg.points
		}

	case addedMsg:
		m.view = viewList
		m.form = addForm{schedule: defaultScheduleIndex()}
		m.message = fmt.Sprintf("Added %s (id %s)", msg.Name, msg.ID)
		return m, fetchSensors(m.api)

	case pollMsg:
		return m, tea.Batch(fetchSensors(m.api), m.poll())

	case errMsg:
		var apiErr *apiError
		if errors.As(msg.err, &apiErr) {
			m.message = apiErr.Message
		} else {
			m.message = msg.Error()
		}
	}

	return m, nil
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.sensors)-1 {
			m.cursor++
		}
	case "r":
		return m, fetchSensors(m.api)
	case "a":
		m.view = viewAdd
		m.message = ""
	case "enter":
		if len(m.sensors) == 0 {
			return m, nil
		}
		m.view = viewDetail
		m.detailID = m.sensors[m.cursor].ID
		m.history = nil
		m.message = ""
		return m, fetchHistory(m.api, m.detailID)
	}
	return m, nil
}

func (m model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		m.detailID = ""
		m.history = nil
	case "r":
		return m, fetchHistory(m.api, m.detailID)
	}
	return m, nil
}

func (m model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.view = viewList
		m.form = addForm{schedule: defaultScheduleIndex()}
		m.message = ""
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		m.form.focus = (m.form.focus + 1) % fieldCount
		return m, nil
	case tea.KeyShiftTab, tea.KeyUp:
		m.form.focus = (m.form.focus + fieldCount - 1) % fieldCount
		return m, nil
	case tea.KeyLeft, tea.KeyRight:
		if m.form.focus == fieldSchedule {
			n := len(sensor.Schedules())
			step := 1
			if msg.Type == tea.KeyLeft {
				step = n - 1
			}
			m.form.schedule = (m.form.schedule + step) % n
		}
		return m, nil
	case tea.KeyBackspace:
		m.form = m.form.edit(func(s string) string {
			if s == "" {
				return s
			}
			r := []rune(s)
			return string(r[:len(r)-1])
		})
		return m, nil
	case tea.KeySpace:
		m.form = m.form.edit(func(s string) string { return s + " " })
		return m, nil
	case tea.KeyRunes:
		m.form = m.form.edit(func(s string) string { return s + string(msg.Runes) })
		return m, nil
	case tea.KeyEnter:
		name := strings.TrimSpace(m.form.name)
		location := strings.TrimSpace(m.form.location)
		if name == "" || location == "" {
			m.message = "name and location are required"
			return m, nil
		}
		m.message = "Adding sensor..."
		return m, submitSensor(m.api, name, location, m.form.selectedSchedule())
	}
	return m, nil
}

func (f addForm) edit(fn func(string) string) addForm {
	switch f.focus {
	case fieldName:
		f.name = fn(f.name)
	case fieldLocation:
		f.location = fn(f.location)
	}
	return f
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("AquaSeer pond monitor"))
	s.WriteString("\n")
	if m.user != "" {
		s.WriteString(mutedStyle.Render("signed in as "+m.user) + "\n")
	}
	s.WriteString(renderStats(m.stats) + "\n\n")

	switch m.view {
	case viewList:
		s.WriteString(m.renderList())
	case viewDetail:
		s.WriteString(m.renderDetail())
	case viewAdd:
		s.WriteString(m.renderAdd())
	}

	if m.message != "" {
		s.WriteString("\n" + m.message + "\n")
	}
	return s.String()
}

func (m model) renderList() string {
	if len(m.sensors) == 0 {
		return mutedStyle.Render("No sensors yet.") + "\n\n" + mutedStyle.Render("a add  r refresh  q quit") + "\n"
	}
	cards := make([]string, 0, len(m.sensors))
	for i, rec := range m.sensors {
		cards = append(cards, renderCard(rec, i == m.cursor))
	}
	var rows []string
	for i := 0; i < len(cards); i += 3 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:min(i+3, len(cards))]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n" +
		mutedStyle.Render("↑/↓ select  enter details  a add  r refresh  q quit") + "\n"
}

func (m model) renderDetail() string {
	var rec *sensor.Record
	for i := range m.sensors {
		if m.sensors[i].ID == m.detailID {
			rec = &m.sensors[i]
			break
		}
	}
	if rec == nil {
		return mutedStyle.Render("Sensor no longer available.") + "\n" + mutedStyle.Render("esc back") + "\n"
	}

	var s strings.Builder
	s.WriteString(renderCard(*rec, true) + "\n")
	s.WriteString(promptStyle.Render("Last 24 hours") + "\n")
	if len(m.history) == 0 {
		s.WriteString(mutedStyle.Render("loading...") + "\n")
	}
	for _, p := range m.history {
		s.WriteString(renderHistoryRow(p) + "\n")
	}
	s.WriteString("\n" + mutedStyle.Render("r regenerate  esc back  q quit") + "\n")
	return s.String()
}

func (m model) renderAdd() string {
	var s strings.Builder
	s.WriteString(promptStyle.Render("Add sensor") + "\n\n")
	fields := []struct {
		label string
		value string
	}{
		{"Name", m.form.name},
		{"Location", m.form.location},
		{"Schedule", "< " + string(m.form.selectedSchedule()) + " >"},
	}
	for i, f := range fields {
		cursor := "  "
		value := f.value
		if i == m.form.focus {
			cursor = "> "
			value = inputStyle.Render(value)
		}
		s.WriteString(fmt.Sprintf("%s%-9s %s\n", cursor, f.label+":", value))
	}
	s.WriteString("\n" + mutedStyle.Render("tab next field  ←/→ schedule  enter save  esc cancel") + "\n")
	return s.String()
}

func renderStats(st sensor.Stats) string {
	return fmt.Sprintf("Total %d  %s  %s  %s",
		st.Total,
		statusStyles[sensor.StatusOnline].Render(fmt.Sprintf("Online %d", st.Online)),
		statusStyles[sensor.StatusOffline].Render(fmt.Sprintf("Offline %d", st.Offline)),
		statusStyles[sensor.StatusWarning].Render(fmt.Sprintf("Warning %d", st.Warning)),
	)
}

func renderCard(rec sensor.Record, selected bool) string {
	flags := sensor.Classify(rec.Readings)
	style := cardStyle
	if selected {
		style = selectedCardStyle
	}
	lines := []string{
		lipgloss.NewStyle().Bold(true).Render(rec.Name),
		mutedStyle.Render(rec.Location),
		statusStyles[rec.Status].Render(string(rec.Status)),
		renderReading("Temp", fmt.Sprintf("%.1f°C", rec.Readings.Temperature), flags.Temperature),
		renderReading("pH", fmt.Sprintf("%.2f", rec.Readings.PH), flags.PH),
		renderReading("DO", fmt.Sprintf("%.1f mg/L", rec.Readings.DissolvedOxygen), flags.DissolvedOxygen),
		mutedStyle.Render(string(rec.Schedule) + " · " + rec.LastUpdate.Local().Format("15:04:05")),
	}
	return style.Render(strings.Join(lines, "\n"))
}

func renderReading(label, value string, outOfRange bool) string {
	if outOfRange {
		return fmt.Sprintf("%-5s %s", label, alertStyle.Render(value+" !"))
	}
	return fmt.Sprintf("%-5s %s", label, value)
}

func renderHistoryRow(p simulation.HistoryPoint) string {
	flags := sensor.Classify(p.Readings)
	return fmt.Sprintf("%6s  %s  %s  %s",
		p.Label,
		renderReading("T", fmt.Sprintf("%5.1f", p.Temperature), flags.Temperature),
		renderReading("pH", fmt.Sprintf("%4.2f", p.PH), flags.PH),
		renderReading("DO", fmt.Sprintf("%4.1f", p.DissolvedOxygen), flags.DissolvedOxygen),
	)
}
