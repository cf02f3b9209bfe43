package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/palemoky/uno-lobby/internal/config"
	"github.com/palemoky/uno-lobby/internal/game/lobby"
	"github.com/palemoky/uno-lobby/internal/server/storage"
)

var errNoCaller = errors.New("--as is required for this command")

// app 命令共享的状态，连接在首次使用时建立
type app struct {
	cfgFile string
	as      string

	cfg     *config.Config
	rdb     *redis.Client
	lobbies *lobby.Manager
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "lobbyctl",
		Short:         "Inspect and manage UNO lobbies stored in Redis",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&a.as, "as", "", "player name to act as")

	rootCmd.AddCommand(
		a.createCmd(),
		a.searchCmd(),
		a.showCmd(),
		a.joinCmd(),
		a.leaveCmd(),
		a.startCmd(),
		a.deleteCmd(),
		a.drawPileCmd(),
		a.tokenCmd(),
		a.watchCmd(),
	)
	return rootCmd
}

func (a *app) loadConfig() error {
	if a.cfgFile == "" {
		a.cfg = config.FromEnv()
		return nil
	}
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	return nil
}

// manager 按需连接 Redis
func (a *app) manager() *lobby.Manager {
	if a.lobbies == nil {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		repo := storage.NewLobbyRepository(a.rdb, a.cfg.Lobby.Collection, a.cfg.Lobby.MaxUpdateRetries)
		a.lobbies = lobby.NewManager(repo, a.cfg.Lobby.OpTimeoutDuration())
	}
	return a.lobbies
}

func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

func (a *app) caller() (string, error) {
	if a.as == "" {
		return "", errNoCaller
	}
	return a.as, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
