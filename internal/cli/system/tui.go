package system

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitboard/internal/cli"
	"github.com/julianstephens/habitboard/internal/tui"
)

type TuiCmd struct {
	Week string `help:"Week to open (e.g. 2026-W05). Defaults to the current week." short:"w"`
}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	weekKey, err := cli.ResolveWeek(c.Week, 0, ctx.Clock())
	if err != nil {
		return err
	}
	b, err := ctx.Board(context.Background())
	if err != nil {
		return err
	}

	m := tui.NewModel(b, tui.WithClock(ctx.Clock), tui.WithWeek(weekKey))
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui exited with error: %w", err)
	}
	return nil
}
