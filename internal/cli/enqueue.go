package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/config"
	"clipforge/log"
)

func newEnqueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a job",
	}
	transcribe := &cobra.Command{
		Use:   "transcribe <videoID>",
		Short: "Queue transcription and clip generation for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			priority, _ := cmd.Flags().GetInt("priority")
			if err := bootstrap(true); err != nil {
				return err
			}
			defer log.GetLogger().Sync()

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			// The memory queue dies with the process, so run the job here.
			if mem, ok := a.backend.(memoryBackend); ok {
				mem.Start(a.svc)
			}
			job, err := a.svc.EnqueueTranscription(cmd.Context(), args[0], priority)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s queued (%s)\n", job.ID, config.Conf.Queue.Backend)

			if mem, ok := a.backend.(memoryBackend); ok {
				mem.Wait()
				done, err := a.svc.Job(cmd.Context(), job.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "job %s %s\n", done.ID, done.Status)
			}
			return nil
		},
	}
	transcribe.Flags().Int("priority", 0, "Queue priority: >0 critical, <0 low")
	cmd.AddCommand(transcribe)
	return cmd
}
