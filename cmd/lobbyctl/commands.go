package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/palemoky/uno-lobby/internal/game/card"
	"github.com/palemoky/uno-lobby/internal/game/lobby"
	"github.com/palemoky/uno-lobby/internal/server/identity"
	"github.com/palemoky/uno-lobby/internal/server/storage"
)

type opResult struct {
	LobbyID string `json:"lobby_id"`
	Op      string `json:"op"`
	Player  string `json:"player,omitempty"`
}

func (a *app) createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a lobby hosted by --as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			match, host, err := a.manager().NewLobby(cmd.Context(), caller, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), struct {
				ID     string               `json:"id"`
				Lobby  storage.LobbyRecord  `json:"lobby"`
				Player storage.PlayerRecord `json:"player"`
			}{match.ID, match.Record, host.Record()})
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search PREFIX",
		Short: "List lobbies that have not started and whose name starts with PREFIX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := a.manager().SearchLobby(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), matches)
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a lobby document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.manager().GetLobby(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), struct {
				ID    string              `json:"id"`
				State string              `json:"state"`
				Lobby storage.LobbyRecord `json:"lobby"`
			}{args[0], lobby.StateOf(rec).String(), *rec})
		},
	}
}

func (a *app) joinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join ID",
		Short: "Join a lobby as --as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			p, err := a.manager().JoinLobby(cmd.Context(), caller, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p.Record())
		},
	}
}

func (a *app) leaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave ID [NAME]",
		Short: "Remove NAME (default --as) from a lobby",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.as
			if len(args) == 2 {
				name = args[1]
			}
			if name == "" {
				return errNoCaller
			}
			if err := a.manager().LeaveLobby(cmd.Context(), args[0], name); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), opResult{LobbyID: args[0], Op: "left", Player: name})
		},
	}
}

func (a *app) startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start ID",
		Short: "Mark a lobby as started",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.manager().StartLobby(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), opResult{LobbyID: args[0], Op: storage.OpStarted})
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a lobby document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.manager().DeleteLobby(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), opResult{LobbyID: args[0], Op: storage.OpDeleted})
		},
	}
}

func (a *app) drawPileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "draw-pile ID VALUE COLOR",
		Short: "Replace the top card of the shared draw pile",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid card value %q: %w", args[1], err)
			}
			color, err := card.ParseColor(args[2])
			if err != nil {
				return err
			}
			c := card.Card{Value: value, Color: color}
			if err := a.manager().UpdateDrawPile(cmd.Context(), args[0], c); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), struct {
				LobbyID string    `json:"lobby_id"`
				Pioche  card.Card `json:"pioche"`
			}{args[0], c})
		},
	}
}

func (a *app) tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token NAME",
		Short: "Issue a bearer token for NAME signed with auth.jwt_secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is not configured")
			}
			token, err := identity.NewVerifier(a.cfg.Auth.JWTSecret, a.cfg.Auth.IdentityClaim).Issue(args[0], ttl)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), struct {
				Token string `json:"token"`
			}{token})
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime (0 for no expiry)")
	return cmd
}
