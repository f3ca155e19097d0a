// Copyright 2024 The Vanta Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/Westmist/Vanta-sub000/pkg/actor"
	"github.com/Westmist/Vanta-sub000/pkg/clock"
	"github.com/Westmist/Vanta-sub000/pkg/cmd/util"
	cerrors "github.com/Westmist/Vanta-sub000/pkg/errors"
	"github.com/Westmist/Vanta-sub000/pkg/logutil"
	"github.com/Westmist/Vanta-sub000/pkg/retry"
	"github.com/Westmist/Vanta-sub000/pkg/workerpool"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/spf13/cobra"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	benchSystemName     = "bench"
	benchShutdownWait   = 10 * time.Second
	retryBaseDelay      = time.Millisecond
	retryMaxDelay       = 50 * time.Millisecond
	defaultRooms        = 16
	defaultProducers    = 4
	defaultMoves        = 10000
	defaultMailboxSize  = 1024
	defaultBenchTimeout = time.Minute
)

// options defines flags for the `bench` command.
type options struct {
	strategy        string
	parallelism     int
	rooms           int
	producers       int
	moves           int
	rate            int
	mailboxCapacity int
	offerTimeout    time.Duration
	throughput      int
	timeout         time.Duration
	logLevel        string
	jsonOutput      bool
}

// newOptions creates new options for the `bench` command.
func newOptions() *options {
	return &options{
		strategy:        workerpool.KindElastic.String(),
		rooms:           defaultRooms,
		producers:       defaultProducers,
		moves:           defaultMoves,
		mailboxCapacity: defaultMailboxSize,
		throughput:      actor.DefaultThroughput,
		timeout:         defaultBenchTimeout,
		logLevel:        "warn",
	}
}

// addFlags receives a *cobra.Command reference and binds
// flags related to the workload to it.
func (o *options) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.strategy, "strategy", o.strategy, "execution strategy (elastic|sharded)")
	cmd.Flags().IntVar(&o.parallelism, "parallelism", o.parallelism, "number of lanes of the sharded strategy, 0 means GOMAXPROCS")
	cmd.Flags().IntVar(&o.rooms, "rooms", o.rooms, "number of room actors")
	cmd.Flags().IntVar(&o.producers, "producers", o.producers, "number of players sending moves to each room")
	cmd.Flags().IntVar(&o.moves, "moves", o.moves, "number of moves sent by each player")
	cmd.Flags().IntVar(&o.rate, "rate", o.rate, "maximum moves per second of all players, 0 means unlimited")
	cmd.Flags().IntVar(&o.mailboxCapacity, "mailbox-capacity", o.mailboxCapacity, "mailbox capacity of a room, 0 means unbounded")
	cmd.Flags().DurationVar(&o.offerTimeout, "mailbox-offer-timeout", o.offerTimeout, "how long a move waits for space in a full mailbox")
	cmd.Flags().IntVar(&o.throughput, "throughput", o.throughput, "maximum moves a room processes before yielding its worker")
	cmd.Flags().DurationVar(&o.timeout, "timeout", o.timeout, "maximum duration of the workload")
	cmd.Flags().StringVar(&o.logLevel, "log-level", o.logLevel, "log level (etc: debug|info|warn|error)")
	cmd.Flags().BoolVar(&o.jsonOutput, "json", o.jsonOutput, "print the report in JSON format")
}

func (o *options) actorConfig() *actor.Config {
	return &actor.Config{
		MailboxCapacity:     o.mailboxCapacity,
		MailboxOfferTimeout: o.offerTimeout,
		SuperviseExceptions: true,
		ContinueOnException: true,
		Throughput:          o.throughput,
	}
}

func (o *options) validate() error {
	if _, err := workerpool.ParseKind(o.strategy); err != nil {
		return cerrors.ErrInvalidBenchOption.Wrap(err).GenWithStackByArgs("strategy")
	}
	switch {
	case o.parallelism < 0:
		return cerrors.ErrInvalidBenchOption.GenWithStackByArgs("parallelism must not be negative")
	case o.rooms <= 0:
		return cerrors.ErrInvalidBenchOption.GenWithStackByArgs("rooms must be positive")
	case o.producers <= 0:
		return cerrors.ErrInvalidBenchOption.GenWithStackByArgs("producers must be positive")
	case o.moves < 0:
		return cerrors.ErrInvalidBenchOption.GenWithStackByArgs("moves must not be negative")
	case o.rate < 0:
		return cerrors.ErrInvalidBenchOption.GenWithStackByArgs("rate must not be negative")
	case o.timeout <= 0:
		return cerrors.ErrInvalidBenchOption.GenWithStackByArgs("timeout must be positive")
	}
	return errors.Trace(o.actorConfig().ValidateAndAdjust())
}

func (o *options) run(cmd *cobra.Command) error {
	ctx, cancel := util.InitCmd(cmd, &logutil.Config{Level: o.logLevel})
	defer cancel()
	ctx, cancel = context.WithTimeout(ctx, o.timeout)
	defer cancel()

	rep, err := runWorkload(ctx, o)
	if err != nil {
		return errors.Trace(err)
	}
	if o.jsonOutput {
		if err := util.JSONPrint(cmd, rep); err != nil {
			return errors.Trace(err)
		}
	} else {
		rep.print(cmd)
	}
	if err := rep.verify(); err != nil {
		cmd.Printf(color.HiRedString("[FAIL] %s\n", err.Error()))
		return err
	}
	return nil
}

// report is the result of a workload.
type report struct {
	Strategy   string        `json:"strategy"`
	Rooms      int           `json:"rooms"`
	Producers  int           `json:"producers_per_room"`
	Expected   int64         `json:"expected_moves"`
	Moves      int64         `json:"moves"`
	OutOfOrder int64         `json:"out_of_order"`
	Retries    int64         `json:"retries"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Throughput returns the processed moves per second.
func (r *report) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Moves) / r.Elapsed.Seconds()
}

func (r *report) verify() error {
	if r.Moves != r.Expected {
		return cerrors.ErrBenchVerifyFailed.GenWithStackByArgs(
			fmt.Sprintf("rooms processed %d moves, %d were sent", r.Moves, r.Expected))
	}
	if r.OutOfOrder != 0 {
		return cerrors.ErrBenchVerifyFailed.GenWithStackByArgs(
			fmt.Sprintf("%d moves arrived out of order", r.OutOfOrder))
	}
	return nil
}

func (r *report) print(cmd *cobra.Command) {
	cmd.Printf("strategy:    %s\n", r.Strategy)
	cmd.Printf("rooms:       %d x %d players\n", r.Rooms, r.Producers)
	cmd.Printf("moves:       %s / %s\n", humanize.Comma(r.Moves), humanize.Comma(r.Expected))
	cmd.Printf("retries:     %s\n", humanize.Comma(r.Retries))
	cmd.Printf("elapsed:     %s\n", r.Elapsed)
	cmd.Printf("throughput:  %s\n", humanize.SIWithDigits(r.Throughput(), 2, "msg/s"))
}

// runWorkload spawns the rooms, lets every player send its moves and asks
// every room for what it has seen.
func runWorkload(ctx context.Context, o *options) (*report, error) {
	kind, err := workerpool.ParseKind(o.strategy)
	if err != nil {
		return nil, errors.Trace(err)
	}
	executor, err := workerpool.New(kind, o.parallelism, workerpool.WithName(benchSystemName))
	if err != nil {
		return nil, errors.Trace(err)
	}
	system, err := actor.NewSystem(benchSystemName, executor,
		actor.WithDefaultConfig(o.actorConfig()))
	if err != nil {
		executor.Shutdown()
		return nil, errors.Trace(err)
	}
	defer func() {
		system.Shutdown()
		if !system.AwaitTermination(benchShutdownWait) {
			log.Warn("bench actor system did not terminate in time",
				zap.Duration("timeout", benchShutdownWait))
		}
	}()

	rooms := make([]actor.Ref, o.rooms)
	for i := range rooms {
		rooms[i], err = actor.Spawn(system, actor.ID(fmt.Sprintf("room-%d", i)),
			newRoomState(o.producers), roomBehavior, nil)
		if err != nil {
			return nil, errors.Trace(err)
		}
	}

	limiter := ratelimit.NewUnlimited()
	if o.rate > 0 {
		limiter = ratelimit.New(o.rate)
	}

	var retries atomic.Int64
	start := clock.MonoNow()
	eg, egCtx := errgroup.WithContext(ctx)
	for _, room := range rooms {
		for player := 0; player < o.producers; player++ {
			room, player := room, player
			eg.Go(func() error {
				return produce(egCtx, room, player, o.moves, limiter, &retries)
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.Trace(err)
	}

	rep := &report{
		Strategy:  kind.String(),
		Rooms:     o.rooms,
		Producers: o.producers,
		Expected:  int64(o.rooms) * int64(o.producers) * int64(o.moves),
	}
	var errs error
	for _, room := range rooms {
		rr, err := askReport(ctx, room, &retries)
		if err != nil {
			errs = multierr.Append(errs, errors.Annotatef(err, "report of %s", room.ID()))
			continue
		}
		rep.Moves += rr.moves
		rep.OutOfOrder += rr.outOfOrder
	}
	rep.Elapsed = clock.MonoNow().Sub(start)
	rep.Retries = retries.Load()
	if errs != nil {
		return nil, errs
	}
	return rep, nil
}

// produce sends the moves of one player in order. A move rejected by a full
// mailbox is sent again after a backoff, the next move waits for it.
func produce(
	ctx context.Context, room actor.Ref, player, moves int,
	limiter ratelimit.Limiter, retries *atomic.Int64,
) error {
	for seq := 1; seq <= moves; seq++ {
		if err := ctx.Err(); err != nil {
			return errors.Trace(err)
		}
		limiter.Take()
		msg := roomCommand{kind: commandMove, player: player, seq: seq}
		err := retry.Do(ctx, func() error {
			return room.Send(msg)
		},
			retry.WithBackoffBaseDelay(retryBaseDelay),
			retry.WithBackoffMaxDelay(retryMaxDelay),
			retry.WithInfiniteTries(),
			retry.WithIsRetryableErr(cerrors.IsRetryableError),
			retry.WithOnRetry(func(int, error) { retries.Inc() }))
		if err != nil {
			return errors.Annotatef(err, "player %d of %s, move %d", player, room.ID(), seq)
		}
	}
	return nil
}

// askReport asks a room for its counters. The mailbox may still be full of
// moves, so a rejected ask is sent again after a backoff.
func askReport(ctx context.Context, room actor.Ref, retries *atomic.Int64) (roomReport, error) {
	var rr roomReport
	err := retry.Do(ctx, func() error {
		var err error
		rr, err = actor.Await[roomReport](ctx, room.Ask(roomCommand{kind: commandReport}))
		return err
	},
		retry.WithBackoffBaseDelay(retryBaseDelay),
		retry.WithBackoffMaxDelay(retryMaxDelay),
		retry.WithInfiniteTries(),
		retry.WithIsRetryableErr(cerrors.IsRetryableError),
		retry.WithOnRetry(func(int, error) { retries.Inc() }))
	return rr, err
}

// NewCmdBench creates the `bench` command.
func NewCmdBench() *cobra.Command {
	o := newOptions()

	command := &cobra.Command{
		Use:   "bench",
		Short: "Run a room and player workload against an in-process actor system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.validate(); err != nil {
				return err
			}
			return o.run(cmd)
		},
	}

	o.addFlags(command)

	return command
}
