package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/cjdenio/webbridge/pkg/client/session"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print every event native code sends to content",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := session.Connect(host, useMsgPack)
		if err != nil {
			return err
		}

		fmt.Print("Watching session ")
		color.New(color.Bold, color.FgGreen).Print(s.ID)
		color.New(color.FgHiBlack).Printf(" on %s\n\n", host)

		for ev := range s.Events() {
			color.New(color.FgHiBlack).Print("<-- ")
			fmt.Println(string(ev))
		}

		if err := s.Wait(); err != nil {
			fmt.Printf("\n❌ Disconnected from server. %s\n", color.New(color.FgHiBlack).Sprint(err))
		}
		return nil
	},
}

var emitCmd = &cobra.Command{
	Use:   "emit <handler> [payload]",
	Short: "Send an event to a native handler",
	Long: `Send an event to a native handler.

A payload that parses as a JSON object is merged into the event; anything
else is sent as its "message" field.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload any
		if len(args) == 2 {
			payload = parsePayload(args[1])
		}

		s, err := session.Connect(host, useMsgPack)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Emit(args[0], payload); err != nil {
			return err
		}

		color.New(color.FgHiBlack).Print("--> ")
		fmt.Println(args[0])
		return nil
	},
}

func parsePayload(s string) any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil && obj != nil {
		return obj
	}
	return s
}
