package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcanvas/pkg/anchor"
	"github.com/matzehuels/flowcanvas/pkg/geometry"
	"github.com/matzehuels/flowcanvas/pkg/observability"
	"github.com/matzehuels/flowcanvas/pkg/render/canvas"
)

const (
	dragStep     = 10 // pointer movement per key press
	dragStepFast = 50 // with shift
	dragRows     = 8  // nearest anchors listed
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// dragCommand creates the interactive drag command.
func (c *CLI) dragCommand() *cobra.Command {
	var (
		step  string
		flags layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "drag [flow]",
		Short: "Interactively move a drop point over a flow's anchors",
		Long: `Interactively move a drop point over a flow's anchors.

Arrow keys (or h/j/k/l) move the pointer, shift moves faster, tab picks the
next step to drag, enter drops and q cancels. The nearest anchors and the
current candidate update on every move.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, _, err := c.computeLayout(cmd.Context(), args[0], flags)
			if err != nil {
				return err
			}
			dragger, cv := mountCanvas(tree)
			m := newDragModel(cmd.Context(), cv, dragger, step)

			final, err := tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return fmt.Errorf("drag: %w", err)
			}
			dm := final.(DragModel)
			if !dm.Dropped {
				printInfo("Drag cancelled")
				return nil
			}
			if dm.Candidate == nil {
				printInfo("Dropped at (%g, %g) with no anchor in range", dm.Point.X, dm.Point.Y)
				return nil
			}
			printCandidate(dm.Candidate.StepName, string(dm.Candidate.Kind), geometry.Distance(dm.Point, dm.Candidate.Rect.Center()))
			return nil
		},
	}

	cmd.Flags().StringVar(&step, "step", "", "step to drag (default: the first action)")
	flags.register(cmd)

	return cmd
}

// =============================================================================
// DragModel - Interactive drop point
// =============================================================================

// DragModel is the bubbletea model for the drag command. The pointer starts
// at the centre of the dragged card.
type DragModel struct {
	Canvas    *canvas.Canvas
	Step      string
	Point     geometry.Point
	Candidate *anchor.Anchor
	Dropped   bool

	ctx     context.Context
	dragger *anchor.Dragger
	steps   []string
}

func newDragModel(ctx context.Context, cv *canvas.Canvas, dragger *anchor.Dragger, step string) DragModel {
	m := DragModel{Canvas: cv, ctx: ctx, dragger: dragger}
	for _, card := range cv.Cards {
		m.steps = append(m.steps, card.Name)
	}
	if step == "" && len(m.steps) > 1 {
		step = m.steps[1]
	}
	m.pick(step)
	return m
}

// pick starts dragging step from the centre of its card.
func (m *DragModel) pick(step string) {
	if m.Step != "" {
		m.dragger.EndDrag()
		observability.Drag().OnDragEnd(m.ctx, m.Step)
	}
	m.Step = step
	if card, ok := m.Canvas.Card(step); ok {
		m.Point = card.Rect.Center()
	}
	m.dragger.SetDragPiece(step)
	observability.Drag().OnDragStart(m.ctx, step)
	m.resolve()
}

func (m *DragModel) resolve() {
	m.Candidate = nil
	a, ok := m.dragger.SetDropPoint(m.Point, m.Step)
	if !ok {
		observability.Drag().OnResolve(m.ctx, m.Step, "", "", 0)
		return
	}
	m.Candidate = &a
	observability.Drag().OnResolve(m.ctx, m.Step, a.StepName, string(a.Kind), geometry.Distance(m.Point, a.Rect.Center()))
}

func (m DragModel) Init() tea.Cmd {
	return nil
}

func (m DragModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	var dx, dy float64
	switch key.String() {
	case "q", "ctrl+c", "esc":
		m.end()
		return m, tea.Quit
	case "enter":
		m.Dropped = true
		m.end()
		return m, tea.Quit
	case "tab":
		if len(m.steps) > 0 {
			i := (slices.Index(m.steps, m.Step) + 1) % len(m.steps)
			m.pick(m.steps[i])
		}
		return m, nil
	case "up", "k":
		dy = -dragStep
	case "down", "j":
		dy = dragStep
	case "left", "h":
		dx = -dragStep
	case "right", "l":
		dx = dragStep
	case "shift+up", "K":
		dy = -dragStepFast
	case "shift+down", "J":
		dy = dragStepFast
	case "shift+left", "H":
		dx = -dragStepFast
	case "shift+right", "L":
		dx = dragStepFast
	default:
		return m, nil
	}

	m.Point.X = clamp(m.Point.X+dx, 0, m.Canvas.Size.Width)
	m.Point.Y = clamp(m.Point.Y+dy, 0, m.Canvas.Size.Height)
	m.resolve()
	return m, nil
}

func (m *DragModel) end() {
	m.dragger.EndDrag()
	observability.Drag().OnDragEnd(m.ctx, m.Step)
}

func (m DragModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Drag " + m.Step))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("←↑↓→ move  shift fast  tab next step  ⏎ drop  q quit"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  pointer  %s   canvas %s\n",
		listNormalStyle.Render(fmt.Sprintf("(%g, %g)", m.Point.X, m.Point.Y)),
		listDimStyle.Render(fmt.Sprintf("%g×%g", m.Canvas.Size.Width, m.Canvas.Size.Height))))
	if m.Candidate != nil {
		b.WriteString("  target   " + listSelectedStyle.Render(m.Candidate.StepName+" "+string(m.Candidate.Kind)) + "\n\n")
	} else {
		b.WriteString("  target   " + listDimStyle.Render("none in range") + "\n\n")
	}

	type row struct {
		a    anchor.Anchor
		dist float64
	}
	rows := make([]row, 0, len(m.Canvas.Anchors))
	for _, a := range m.Canvas.Anchors {
		rows = append(rows, row{a, geometry.Distance(m.Point, a.Rect.Center())})
	}
	slices.SortStableFunc(rows, func(x, y row) int {
		switch {
		case x.dist < y.dist:
			return -1
		case x.dist > y.dist:
			return 1
		}
		return 0
	})
	rows = rows[:min(len(rows), dragRows)]

	cells := make([][]string, len(rows))
	for i, r := range rows {
		center := r.a.Rect.Center()
		cells[i] = []string{r.a.StepName, string(r.a.Kind), fmt.Sprintf("(%g, %g)", center.X, center.Y), fmt.Sprintf("%.1f", r.dist)}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Step", "Anchor", "Center", "Distance").
		Rows(cells...).
		StyleFunc(func(r, col int) lipgloss.Style {
			if r == -1 {
				return headerStyle
			}
			if r < 0 || r >= len(rows) {
				return lipgloss.NewStyle()
			}
			if m.Candidate != nil && rows[r].a.Key() == m.Candidate.Key() {
				return listSelectedStyle
			}
			if rows[r].a.StepName == m.Step {
				return listDimStyle
			}
			return listNormalStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
