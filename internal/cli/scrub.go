package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depsgraph/pkg/depsgraph/eval"
	"github.com/matzehuels/depsgraph/pkg/pipeline"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// scrubCommand creates the interactive timeline command.
func (c *CLI) scrubCommand() *cobra.Command {
	var (
		frames  string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "scrub <scene.toml>",
		Short: "Step through frames interactively",
		Long: `Open an interactive view of the evaluated scene. Arrow keys step through
the frame range and v toggles the visibility of the selected object. Each
step re-evaluates only what the change invalidated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			list, err := parseFrames(frames)
			if err != nil {
				return err
			}
			// Log lines would tear the full-screen view.
			quiet := quietLogger()
			r, err := newRunner(ctx, args[0], pipeline.Options{Workers: workers, Logger: quiet})
			if err != nil {
				return err
			}
			objects, err := selectObjects(r.Scene(), nil)
			if err != nil {
				return err
			}

			m := NewScrubModel(ctx, r, objects, list[0], list[len(list)-1])
			p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(cmd.OutOrStdout()))
			final, err := p.Run()
			if err != nil {
				return err
			}
			if fm, ok := final.(ScrubModel); ok && fm.Err != nil {
				return fm.Err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&frames, "frames", "1:250", "frame range start:end")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "evaluation workers (0 = GOMAXPROCS)")

	return cmd
}

// =============================================================================
// ScrubModel - Interactive frame stepping
// =============================================================================

// ScrubModel is the bubbletea model of the scrub command.
type ScrubModel struct {
	runner  *pipeline.Runner
	ctx     context.Context
	objects []scene.Handle

	Frame  float64
	Start  float64
	End    float64
	Cursor int

	// Result is the last evaluation pass, Err the last failure.
	Result *eval.Result
	Err    error
}

// NewScrubModel evaluates r at start and returns the model.
func NewScrubModel(ctx context.Context, r *pipeline.Runner, objects []scene.Handle, start, end float64) ScrubModel {
	m := ScrubModel{
		runner:  r,
		ctx:     ctx,
		objects: objects,
		Start:   start,
		End:     end,
	}
	return m.seek(start)
}

func (m ScrubModel) seek(frame float64) ScrubModel {
	frame = max(m.Start, min(m.End, frame))
	m.Frame = frame
	m.Result, m.Err = m.runner.EvaluateOnFramechange(m.ctx, frame)
	return m
}

// toggle flips the hidden flag of the selected object and re-evaluates.
func (m ScrubModel) toggle() ScrubModel {
	if len(m.objects) == 0 {
		return m
	}
	h := m.objects[m.Cursor]
	e := m.runner.Scene().Get(h)
	e.Hidden = !e.Hidden
	m.runner.TagVisibilityUpdate(h)
	m.Result, m.Err = m.runner.EvaluateOnRefresh(m.ctx, scene.Clock{Frame: m.Frame})
	return m
}

func (m ScrubModel) Init() tea.Cmd {
	return nil
}

func (m ScrubModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "left", "h":
		m = m.seek(m.Frame - 1)
	case "right", "l":
		m = m.seek(m.Frame + 1)
	case "home", "g":
		m = m.seek(m.Start)
	case "end", "G":
		m = m.seek(m.End)
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.objects)-1 {
			m.Cursor++
		}
	case "v":
		m = m.toggle()
	}
	return m, nil
}

func (m ScrubModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Frame %s", formatFrame(m.Frame))))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%s–%s]", formatFrame(m.Start), formatFrame(m.End))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("←/→ frame  ↑/↓ select  v toggle visibility  q quit"))
	b.WriteString("\n\n")

	rows := make([][]string, 0, len(m.objects))
	for i, h := range m.objects {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		name := m.runner.Scene().Get(h).Name
		x, y, z := "—", "—", "—"
		if e := m.runner.Evaluated(h); e != nil {
			loc := e.Eval.World.Translation()
			x, y, z = fmt.Sprintf("%.3f", loc[0]), fmt.Sprintf("%.3f", loc[1]), fmt.Sprintf("%.3f", loc[2])
		}
		visible := ""
		if id := m.runner.Graph().FindIDNode(h); id != nil && id.DirectlyVisible {
			visible = "✓"
		}
		rows = append(rows, []string{cursor, name, x, y, z, visible})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Object", "X", "Y", "Z", "Visible").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case row == m.Cursor:
				return listSelectedStyle
			case rows[row][5] == "":
				return listDimStyle
			}
			return listNormalStyle
		})
	b.WriteString(t.Render())
	b.WriteString("\n\n")

	if m.Err != nil {
		b.WriteString(styleIconError.Render(iconError) + " " + m.Err.Error())
	} else if m.Result != nil {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  ran %d · invisible %d · failed %d · %s",
			m.Result.Ran, m.Result.Invisible, m.Result.Failed, m.Result.Duration)))
	}
	b.WriteString("\n")
	return b.String()
}
