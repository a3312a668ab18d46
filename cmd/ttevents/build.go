package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/PratikDhanave/tiktok-events-service/internal/cookies"
	"github.com/PratikDhanave/tiktok-events-service/internal/models"
	"github.com/PratikDhanave/tiktok-events-service/internal/tiktok"
)

func newBuildCmd() *cobra.Command {
	var (
		eventType    string
		file         string
		hideClientIP bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Print the request body for an event read from stdin or --file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return runBuild(in, cmd.OutOrStdout(), eventType, tiktok.Settings{HideClientIP: hideClientIP})
		},
	}

	cmd.Flags().StringVarP(&eventType, "type", "t", "", "event type (pageview, ecommerce, or a custom type)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the event from this file instead of stdin")
	cmd.Flags().BoolVar(&hideClientIP, "hide-client-ip", false, "omit ip and user_agent from the user object")

	return cmd
}

func runBuild(in io.Reader, out io.Writer, eventType string, settings tiktok.Settings) error {
	var ev models.EventInput
	if err := json.NewDecoder(in).Decode(&ev); err != nil {
		return errors.Wrap(err, "decode event")
	}
	if eventType == "" {
		eventType = ev.Type
	}

	jar := cookies.NewJar(ev.Client.Cookies, nil)
	res, err := tiktok.BuildRequestBody(eventType, ev.ToEvent(jar), settings)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Body)
}
