package main

import (
	"PoolServer/server"
	"context"
	"encoding/json"
	"fmt"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"time"
)

func newStatsCommand() *cobra.Command {
	var (
		controlAddress string
		timeout        time.Duration
		shutdown       bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print worker pool statistics from a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := grpc.NewClient(controlAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", controlAddress, err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client := server.NewControlClient(conn)
			stats, err := client.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch stats: %w", err)
			}

			encoded, err := json.MarshalIndent(stats.AsMap(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))

			if shutdown {
				if err := client.Shutdown(ctx); err != nil {
					return fmt.Errorf("failed to request shutdown: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "shutdown requested")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&controlAddress, "control", "127.0.0.1:3001", "address of the control service")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "deadline for the control call")
	cmd.Flags().BoolVar(&shutdown, "shutdown", false, "request an orderly shutdown after printing statistics")

	return cmd
}
