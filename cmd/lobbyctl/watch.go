package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/palemoky/uno-lobby/internal/client"
	"github.com/palemoky/uno-lobby/internal/protocol"
	"github.com/palemoky/uno-lobby/internal/protocol/codec"
	"github.com/palemoky/uno-lobby/internal/server/identity"
	"github.com/palemoky/uno-lobby/internal/server/storage"
)

// watchCmd 通过 WebSocket 服务订阅房间，逐行打印快照
func (a *app) watchCmd() *cobra.Command {
	var (
		serverURL string
		codecName string
		count     int
	)
	cmd := &cobra.Command{
		Use:   "watch ID",
		Short: "Stream lobby snapshots from a running server until the lobby is deleted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			if a.cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is not configured")
			}
			token, err := identity.NewVerifier(a.cfg.Auth.JWTSecret, a.cfg.Auth.IdentityClaim).Issue(caller, time.Hour)
			if err != nil {
				return err
			}

			c := client.New(serverURL, token, codec.ForName(codecName))
			if err := c.Connect(cmd.Context()); err != nil {
				return fmt.Errorf("connect %s: %w", serverURL, err)
			}
			defer c.Close()

			if err := c.WatchLobby(args[0]); err != nil {
				return err
			}

			seen := 0
			for {
				msg, err := c.Receive(cmd.Context())
				if err != nil {
					return err
				}
				switch msg.Type {
				case protocol.MsgLobbySnapshot:
					payload, err := codec.ParsePayload[protocol.LobbySnapshotPayload](msg)
					if err != nil {
						return err
					}
					if err := printJSON(cmd.OutOrStdout(), payload.Lobby); err != nil {
						return err
					}
					seen++
					if count > 0 && seen >= count {
						return nil
					}
				case protocol.MsgLobbyDeleted:
					return printJSON(cmd.OutOrStdout(), opResult{LobbyID: args[0], Op: storage.OpDeleted})
				case protocol.MsgError:
					payload, err := codec.ParsePayload[protocol.ErrorPayload](msg)
					if err != nil {
						return err
					}
					return &client.ServerError{Code: payload.Code, Message: payload.Message}
				}
			}
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "ws://localhost:1780/ws", "lobby server websocket URL")
	cmd.Flags().StringVar(&codecName, "codec", codec.NameJSON, "wire codec (json or proto)")
	cmd.Flags().IntVar(&count, "count", 0, "exit after COUNT snapshots (0 to follow until deleted)")
	return cmd
}
