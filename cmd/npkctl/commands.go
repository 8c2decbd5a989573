package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"NpkBot/internal/config"
	"NpkBot/internal/core"
	"NpkBot/internal/model"
	"NpkBot/internal/parser"
	"NpkBot/internal/recommend"
	"NpkBot/internal/robot"
	"NpkBot/internal/store"
	"NpkBot/internal/util"
)

var errUsage = errors.New("invalid usage")

type cli struct {
	cfg    *model.Config
	format parser.Parser
	out    io.Writer
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("npkctl", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, usage) }
	cfgPath := fs.String("c", "", "path to configuration file")
	format := fs.String("format", "json", "output format: json or csv")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errUsage
	}

	p, err := parser.ForFormat(*format)
	if err != nil {
		return err
	}

	// recommend needs no configuration at all
	if rest[0] == "recommend" {
		return cmdRecommend(rest[1:], p, out)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	c := &cli{cfg: cfg, format: p, out: out}

	switch rest[0] {
	case "config":
		return c.config(rest[1:])
	case "send":
		return c.send(rest[1:])
	case "drive":
		return c.drive(rest[1:])
	case "gps":
		return c.gps()
	case "soil":
		return c.soil()
	case "watch":
		return c.watch(rest[1:])
	}
	fs.Usage()
	return fmt.Errorf("%w: unknown command %q", errUsage, rest[0])
}

func cmdRecommend(args []string, p parser.Parser, out io.Writer) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: recommend <N> <P> <K>", errUsage)
	}
	var v [3]int
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", a, err)
		}
		v[i] = n
	}
	rec := model.SoilRecord{
		SoilReading:    model.SoilReading{Nitrogen: v[0], Phosphorus: v[1], Potassium: v[2]},
		Recommendation: recommend.Recommend(v[0], v[1], v[2]),
	}
	line, err := p.EncodeSoil(rec)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, line)
	return err
}

// openStore opens the address store. It fails fast while the daemon holds the lock.
func (c *cli) openStore() (*store.AddressStore, error) {
	st, err := store.Open(c.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("%w (is npkbot running? use PUT /api/config instead)", err)
	}
	return st, nil
}

func (c *cli) config(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: config get|set|clear", errUsage)
	}
	st, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	switch args[0] {
	case "get":
		addr, ok, err := st.Get()
		if err != nil {
			return err
		}
		if !ok {
			_, err = fmt.Fprintln(c.out, "(not configured)")
			return err
		}
		_, err = fmt.Fprintln(c.out, addr)
		return err
	case "set":
		if len(args) != 2 {
			return fmt.Errorf("%w: config set <http://host:port>", errUsage)
		}
		return st.Set(args[1])
	case "clear":
		return st.Clear()
	}
	return fmt.Errorf("%w: config get|set|clear", errUsage)
}

// resolvedAddr reads the configured address, falling back to robot.default_address.
type resolvedAddr struct{ addr string }

func (r resolvedAddr) Get() (string, bool, error) { return r.addr, r.addr != "", nil }

func (c *cli) address() (resolvedAddr, error) {
	st, err := c.openStore()
	if err != nil {
		if c.cfg.Robot.DefaultAddress != "" {
			util.Warn("npkctl: %v; using robot.default_address %s, which may differ from the daemon's saved address",
				err, c.cfg.Robot.DefaultAddress)
			return resolvedAddr{c.cfg.Robot.DefaultAddress}, nil
		}
		return resolvedAddr{}, err
	}
	defer func() { _ = st.Close() }()
	addr, ok, err := st.Get()
	if err != nil {
		return resolvedAddr{}, err
	}
	if !ok {
		addr = c.cfg.Robot.DefaultAddress
	}
	return resolvedAddr{addr}, nil
}

func (c *cli) client() *robot.Client {
	return robot.NewClient(config.Ms(c.cfg.Robot.RequestTimeoutMs))
}

func (c *cli) commander() (*core.Commander, error) {
	addr, err := c.address()
	if err != nil {
		return nil, err
	}
	return core.NewCommander(addr, c.client(), config.Ms(c.cfg.Control.CooldownMs)), nil
}

func (c *cli) send(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: send <command>", errUsage)
	}
	cmd, err := model.ParseCommand(args[0])
	if err != nil {
		return err
	}
	cm, err := c.commander()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*config.Ms(c.cfg.Robot.RequestTimeoutMs))
	defer cancel()
	if cmd == model.CmdStop {
		err = cm.Release(ctx)
	} else {
		err = cm.Send(ctx, cmd)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "sent %s\n", cmd)
	return err
}

// drive holds a direction for a while and then always releases it.
func (c *cli) drive(args []string) error {
	fs := flag.NewFlagSet("drive", flag.ContinueOnError)
	fs.SetOutput(c.out)
	hold := fs.Duration("hold", time.Second, "how long to hold the direction")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: drive [-hold 1s] <direction>", errUsage)
	}
	cmd, err := model.ParseCommand(fs.Arg(0))
	if err != nil {
		return err
	}
	cm, err := c.commander()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pressErr := cm.Press(ctx, cmd)
	if pressErr == nil {
		select {
		case <-time.After(*hold):
		case <-ctx.Done():
		}
	}

	relCtx, cancel := context.WithTimeout(context.Background(), 2*config.Ms(c.cfg.Robot.RequestTimeoutMs))
	defer cancel()
	relErr := cm.Release(relCtx)
	if err := errors.Join(pressErr, relErr); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "held %s for %s, released\n", cmd, *hold)
	return err
}

func (c *cli) gps() error {
	addr, err := c.address()
	if err != nil {
		return err
	}
	base, _, _ := addr.Get()
	if base == "" {
		return model.ErrNotConfigured
	}
	pos, err := c.client().Position(context.Background(), base)
	if err != nil {
		return err
	}
	return c.printPosition(pos)
}

func (c *cli) soil() error {
	addr, err := c.address()
	if err != nil {
		return err
	}
	base, _, _ := addr.Get()
	if base == "" {
		return model.ErrNotConfigured
	}
	rd, err := c.client().Soil(context.Background(), base)
	if err != nil {
		return err
	}
	return c.printSoil(model.SoilRecord{
		SoilReading:    rd,
		Recommendation: recommend.Recommend(rd.Nitrogen, rd.Phosphorus, rd.Potassium),
	})
}

// watch mounts one screen and prints every update until -n updates or Ctrl+C.
func (c *cli) watch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(c.out)
	count := fs.Int("n", 0, "stop after n updates (0 = until interrupted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: watch [-n count] <gps|soil>", errUsage)
	}
	addr, err := c.address()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	t := c.cfg.Telemetry

	switch fs.Arg(0) {
	case "gps":
		s := core.NewMapScreen(addr, c.client(), config.Ms(t.GPSIntervalMs), t.MapOnFailure)
		ch, cancel := s.Subscribe()
		defer cancel()
		if err := s.Mount(ctx); err != nil {
			return err
		}
		defer s.Unmount()
		return drain(ctx, ch, *count, func(v core.MapView) error {
			if v.Position == nil {
				_, err := fmt.Fprintf(c.out, "# %s: %s\n", v.Connectivity, v.LastError)
				return err
			}
			return c.printPosition(*v.Position)
		})
	case "soil":
		s := core.NewSoilScreen(addr, c.client(), config.Ms(t.SoilIntervalMs), t.SoilOnFailure, 1)
		ch, cancel := s.Subscribe()
		defer cancel()
		if err := s.Mount(ctx); err != nil {
			return err
		}
		defer s.Unmount()
		return drain(ctx, ch, *count, func(v core.SoilView) error {
			if len(v.Records) == 0 {
				_, err := fmt.Fprintf(c.out, "# %s: %s\n", v.Connectivity, v.LastError)
				return err
			}
			return c.printSoil(v.Records[0])
		})
	}
	return fmt.Errorf("%w: watch gps|soil", errUsage)
}

func drain[T any](ctx context.Context, ch <-chan T, count int, fn func(T) error) error {
	for n := 0; count == 0 || n < count; n++ {
		select {
		case <-ctx.Done():
			return nil
		case v, ok := <-ch:
			if !ok {
				return nil
			}
			if err := fn(v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *cli) printPosition(p model.Position) error {
	line, err := c.format.EncodePosition(p)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, line)
	return err
}

func (c *cli) printSoil(r model.SoilRecord) error {
	line, err := c.format.EncodeSoil(r)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, line)
	return err
}
