package system

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/habitboard/internal/cli"
	"github.com/julianstephens/habitboard/internal/constants"
	"github.com/julianstephens/habitboard/internal/server"
)

type ServeCmd struct {
	Addr string `help:"Address to listen on." default:"${listen_addr}"`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := ctx.Board(runCtx)
	if err != nil {
		return err
	}

	srv := server.New(b, ctx.Session, server.WithClock(ctx.Clock))
	ctx.Printf("Serving %s board on http://%s (Ctrl+C to stop)\n", constants.AppName, c.Addr)
	return srv.Run(runCtx, c.Addr)
}
