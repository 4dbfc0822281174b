// Assistant commands: connectivity probe, status, and chat. The
// gateway owns the availability state; these commands persist its last
// observed value to the settings table so it stays visible across
// invocations.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sietch-labs/sietch/internal/gateway"
	"github.com/sietch-labs/sietch/internal/sqlite"
	"github.com/sietch-labs/sietch/pkg/types"
)

// settingGatewayState is the settings key recording the last observed
// gateway state.
const settingGatewayState = "gateway.state"

// assistantSystemPrompt frames every submission.
const assistantSystemPrompt = "You are a concise survival-game reference assistant. " +
	"Answer questions about resources, crafting, skills, and lore."

var (
	askSession string
	askEntity  string
)

var assistantCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Talk to the remote assistant",
	Long: `Assistant commands mediate every interaction with the remote model.
The gateway starts offline; "probe" checks connectivity with one
bounded dial, and "ask" refuses locally while offline instead of
touching the network.`,
}

var assistantProbeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check connectivity and update the gateway state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := attachStore()
		if err != nil {
			return err
		}
		defer store.Detach()

		g := newGateway(store, nil)
		state := g.Probe()
		fmt.Println("Gateway:", state)
		return nil
	},
}

var assistantStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last observed gateway state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := attachStore()
		if err != nil {
			return err
		}
		defer store.Detach()

		state, err := store.GetSetting(settingGatewayState)
		if err != nil {
			state = string(gateway.StateOffline)
		}
		fmt.Println("Gateway:", state)
		return nil
	},
}

var assistantAskCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Ask the assistant a question",
	Long: `Ask probes connectivity, submits the prompt, and appends both sides
of the exchange to the chat log. With --entity the exchange is linked
to a reference entry.

Example:
  sietch assistant ask "What is spice used for?"
  sietch assistant ask "Best rope recipe?" --entity recipe:rope`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var entity *types.Ref
		if askEntity != "" {
			ref, err := parseRefArg(askEntity)
			if err != nil {
				return err
			}
			entity = &ref
		}

		store, err := attachStore()
		if err != nil {
			return err
		}
		defer store.Detach()

		cfg, err := storeConfig()
		if err != nil {
			return err
		}
		client := gateway.NewOpenAIClient(cfg.Assistant)
		g := newGateway(store, client)

		if g.Probe() != gateway.StateOnline {
			return types.ErrUnavailable
		}

		prompt := args[0]
		session := askSession
		if session == "" {
			session = time.Now().UTC().Format("2006-01-02")
		}
		if _, err := store.AppendChat(&types.ChatRecord{
			SessionID: session,
			Sender:    types.SenderUser,
			Text:      prompt,
			Entity:    entity,
		}); err != nil {
			return fmt.Errorf("record question: %w", err)
		}

		timeout := time.Duration(cfg.AssistantTimeoutSeconds()) * time.Second
		handle, err := g.Submit(cmd.Context(), gateway.Request{
			System: assistantSystemPrompt,
			Prompt: prompt,
		}, timeout)
		if err != nil {
			return err
		}
		cliLog.Infof("submitted request %s", handle.ID())

		answer, err := handle.Result()
		if err != nil {
			return err
		}
		if _, err := store.AppendChat(&types.ChatRecord{
			SessionID: session,
			Sender:    types.SenderAssistant,
			Text:      answer,
			Entity:    entity,
		}); err != nil {
			return fmt.Errorf("record answer: %w", err)
		}

		fmt.Println(answer)
		return nil
	},
}

var assistantHistoryCmd = &cobra.Command{
	Use:   "history <session>",
	Short: "Show a chat session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := attachStore()
		if err != nil {
			return err
		}
		defer store.Detach()

		records, err := store.ChatSession(args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(records)
		}
		for _, r := range records {
			fmt.Printf("[%s] %s: %s\n", r.CreatedAt.Format(time.RFC3339), r.Sender, r.Text)
		}
		return nil
	},
}

// newGateway builds a gateway whose transitions are mirrored into the
// settings table. The gateway itself never touches the store; the CLI
// does the persisting through the hook.
func newGateway(store *sqlite.Backend, client gateway.AssistantClient) *gateway.Gateway {
	cfg, _ := storeConfig()
	g := gateway.NewGateway(cfg, client)
	g.OnTransition(func(state gateway.State) {
		if err := store.SetSetting(settingGatewayState, string(state)); err != nil {
			cliLog.Warnf("persisting gateway state: %v", err)
		}
	})
	return g
}

func init() {
	assistantAskCmd.Flags().StringVar(&askSession, "session", "", "chat session id (default: today's date)")
	assistantAskCmd.Flags().StringVar(&askEntity, "entity", "", "link the exchange to an entity (kind:id)")

	assistantCmd.AddCommand(assistantProbeCmd)
	assistantCmd.AddCommand(assistantStatusCmd)
	assistantCmd.AddCommand(assistantAskCmd)
	assistantCmd.AddCommand(assistantHistoryCmd)
}
