package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexusflow/nexusflow-client/internal/app/oracle"
)

func newOracleCmd(f *rootFlags) *cobra.Command {
	var in, out string
	var duration time.Duration
	var fast bool
	cmd := &cobra.Command{
		Use:   "oracle",
		Short: "Talk to the voice assistant using PCM16 files as microphone and speaker",
		Long: "Streams --in (raw mono 16 kHz PCM16) to the live voice model and writes\n" +
			"assistant audio (24 kHz PCM16) to --out, then prints the transcript.",
		Args: cobra.NoArgs,
	}
	cmd.RunE = f.withApp(func(ctx context.Context, a *app, w io.Writer) error {
		deps := a.voiceDeps(in, out, !fast)
		changed := make(chan struct{}, 1)
		deps.OnChange = func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		}
		c := oracle.New(deps)
		if err := c.Start(ctx); err != nil {
			return err
		}
		defer c.Stop()

		deadline := time.NewTimer(duration)
		defer deadline.Stop()
	wait:
		for {
			select {
			case <-ctx.Done():
				break wait
			case <-deadline.C:
				break wait
			case <-changed:
				if c.State() == oracle.StateIdle {
					break wait
				}
			}
		}
		c.Stop()

		lines := c.Transcript()
		return f.print(w, lines, func(w io.Writer) {
			for _, l := range lines {
				fmt.Fprintln(w, l)
			}
		})
	})
	cmd.Flags().StringVar(&in, "in", "", "capture file (required)")
	cmd.Flags().StringVar(&out, "out", "oracle-out.pcm", "playback file")
	cmd.Flags().DurationVar(&duration, "duration", 30*time.Second, "maximum session length")
	cmd.Flags().BoolVar(&fast, "fast", false, "stream the capture file without realtime pacing")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
