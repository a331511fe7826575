package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/go-drift/hooks/cmd/hooks/internal/config"
	"github.com/go-drift/hooks/pkg/errors"
	"github.com/go-drift/hooks/pkg/log"
	"github.com/go-drift/hooks/pkg/loop"
	"github.com/go-drift/hooks/pkg/platform"
	"github.com/go-drift/hooks/pkg/timeout"
)

func init() {
	RegisterCommand(&Command{
		Name:  "timeout",
		Short: "Run a long-delay timer",
		Long: `Run a one-shot timer on a UI loop and report when it fires.

Delays longer than the maximum single-timer duration are split into
consecutive platform timers. Each chunk is printed as it is scheduled.

Flags:
  --delay D      Total delay (default 1s)
  --max D        Maximum single-timer duration (default from hooks.yaml,
                 otherwise 2147483647ms)
  --no-chain     Use one platform timer; delays above --max fail
  --dir DIR      Directory holding hooks.yaml (default: project root)
  --verbose      Log at debug level

Examples:
  hooks timeout --delay 3s --max 1s
  hooks timeout --delay 500ms --no-chain`,
		Usage: "hooks timeout [--delay D] [--max D] [--no-chain] [--dir DIR] [--verbose]",
		Run:   runTimeout,
	})
}

type timeoutArgs struct {
	delay   time.Duration
	max     time.Duration
	noChain bool
	dir     string
	verbose bool
}

func parseTimeoutArgs(args []string) (timeoutArgs, error) {
	out := timeoutArgs{delay: time.Second}
	value := func(i *int, name string) (string, error) {
		arg := args[*i]
		if v, ok := strings.CutPrefix(arg, name+"="); ok {
			return v, nil
		}
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", name)
		}
		*i++
		return args[*i], nil
	}
	duration := func(i *int, name string) (time.Duration, error) {
		s, err := value(i, name)
		if err != nil {
			return 0, err
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", name, err)
		}
		return d, nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		var err error
		switch {
		case arg == "--delay" || strings.HasPrefix(arg, "--delay="):
			out.delay, err = duration(&i, "--delay")
		case arg == "--max" || strings.HasPrefix(arg, "--max="):
			out.max, err = duration(&i, "--max")
			if err == nil && out.max <= 0 {
				err = fmt.Errorf("--max must be positive")
			}
		case arg == "--dir" || strings.HasPrefix(arg, "--dir="):
			out.dir, err = value(&i, "--dir")
		case arg == "--no-chain":
			out.noChain = true
		case arg == "--verbose":
			out.verbose = true
		default:
			err = fmt.Errorf("unknown flag %q", arg)
		}
		if err != nil {
			return timeoutArgs{}, err
		}
	}
	return out, nil
}

func runTimeout(args []string) error {
	opts, err := parseTimeoutArgs(args)
	if err != nil {
		return err
	}

	root := opts.dir
	if root == "" {
		if root, err = config.FindProjectRoot(); err != nil {
			return err
		}
	}
	cfg, err := config.Resolve(root)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	maxDelay := cfg.MaxDelay
	if opts.max > 0 {
		maxDelay = opts.max
	}
	level := cfg.LogLevel
	if opts.verbose {
		level = log.LevelDebug
	}

	logger := log.New(level, log.Options{Development: cfg.Development})
	if cfg.ModulePath != "" {
		logger = logger.With(zap.String("module", cfg.ModulePath))
	}
	prevLogger := log.SetLogger(logger)
	defer func() {
		_ = logger.Sync()
		log.SetLogger(prevLogger)
	}()
	prevHandler := errors.DefaultHandler
	errors.SetHandler(&errors.LogHandler{Verbose: cfg.Verbose || opts.verbose})
	defer errors.SetHandler(prevHandler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runTimer(ctx, opts.delay, maxDelay, cfg.Chaining && !opts.noChain)
}

// runTimer drives one timer on a fresh loop until it fires or ctx ends.
func runTimer(ctx context.Context, delay, maxDelay time.Duration, chaining bool) error {
	l := loop.New()
	restore := l.Install()
	defer restore()

	sched := &chunkPrinter{SystemScheduler: platform.NewSystemSchedulerWithMax(maxDelay)}
	defer sched.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := l.Run(gctx)
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			// Cancellation is reported by the waiter below.
			return nil
		}
		return err
	})

	fired := make(chan time.Duration, 1)
	startErr := make(chan error, 1)
	started := platform.Now()
	if err := l.Submit(func() {
		t := timeout.New(func(struct{}) {
			fired <- platform.Since(started)
		}, delay, timeout.WithScheduler(sched), timeout.WithChaining(chaining), timeout.WithStartOnCreate(false))
		if err := t.Start(struct{}{}); err != nil {
			startErr <- err
		}
	}); err != nil {
		return err
	}

	g.Go(func() error {
		defer l.Close()
		select {
		case elapsed := <-fired:
			fmt.Fprintf(stdout, "fired after %v in %d chunk(s)\n", elapsed.Round(time.Millisecond), sched.count.Load())
			return nil
		case err := <-startErr:
			return err
		case <-gctx.Done():
			fmt.Fprintln(stdout, "interrupted before the timer fired")
			return nil
		}
	})

	return g.Wait()
}

// chunkPrinter reports every platform timer the timer schedules.
type chunkPrinter struct {
	*platform.SystemScheduler
	count atomic.Int64
}

func (c *chunkPrinter) Schedule(fn func(), delay time.Duration) (platform.Handle, error) {
	h, err := c.SystemScheduler.Schedule(fn, delay)
	if err != nil {
		return h, err
	}
	n := c.count.Add(1)
	fmt.Fprintf(stdout, "chunk %d: %v\n", n, delay)
	return h, nil
}
