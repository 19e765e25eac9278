// Command ferryman is a CLI for the remote file transfer engine: FTP, FTPS
// and SFTP behind one set of commands.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ykushch/ferryman/internal/config"
	"github.com/ykushch/ferryman/internal/logging"
	"github.com/ykushch/ferryman/internal/metrics"
	"github.com/ykushch/ferryman/internal/remote"
	"github.com/ykushch/ferryman/internal/session"
	"github.com/ykushch/ferryman/internal/store"
)

var (
	flagConfig   string
	flagProfile  string
	flagProto    string
	flagHost     string
	flagPort     int
	flagUser     string
	flagPassword string
	flagTLS      bool
)

var (
	cfg *config.Config
	db  *store.Store
)

var rootCmd = &cobra.Command{
	Use:           "ferryman",
	Short:         "Remote file transfer engine for FTP, FTPS and SFTP servers",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if err := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		if cfg.Store.DSN != "" {
			db, err = store.Open(cfg.Store.DSN)
			if err != nil {
				return err
			}
		}
		if cfg.Metrics.Addr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
					logging.L().Warn("metrics endpoint stopped", zap.Error(err))
				}
			}()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			_ = db.Close()
		}
		_ = logging.Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (YAML)")
	pf.StringVar(&flagProfile, "profile", "", "saved connection profile name")
	pf.StringVar(&flagProto, "proto", "ftp", "protocol: ftp, ftps or sftp")
	pf.StringVar(&flagHost, "host", "", "server hostname")
	pf.IntVar(&flagPort, "port", 0, "server port (0 = protocol default)")
	pf.StringVar(&flagUser, "user", "", "username")
	pf.StringVar(&flagPassword, "password", "", "password (prefer FERRYMAN_PASSWORD or the prompt)")
	pf.BoolVar(&flagTLS, "tls", false, "use explicit TLS (ftps shorthand)")
}

// resolveProfile builds the connection profile from --profile or the
// individual flags. Password lookup order: flag, FERRYMAN_PASSWORD, stored
// profile, interactive prompt.
func resolveProfile(ctx context.Context) (session.Profile, error) {
	var p session.Profile
	if flagProfile != "" {
		if db == nil {
			return p, fmt.Errorf("--profile requires a configured store (set store.dsn or FERRYMAN_STORE_DSN)")
		}
		stored, err := db.Profiles().Get(ctx, flagProfile)
		if err != nil {
			return p, err
		}
		p = stored
	} else {
		p = session.Profile{
			Protocol: remote.Protocol(flagProto),
			Host:     flagHost,
			Port:     flagPort,
			Username: flagUser,
			UseTLS:   flagTLS,
		}
		if flagTLS && p.Protocol == remote.ProtocolFTP {
			p.Protocol = remote.ProtocolFTPS
		}
	}

	switch {
	case flagPassword != "":
		p.Password = flagPassword
	case os.Getenv("FERRYMAN_PASSWORD") != "":
		p.Password = os.Getenv("FERRYMAN_PASSWORD")
	case p.Password != "":
		// Stored profile already carries its secret.
	default:
		pw, err := askPassword()
		if err != nil {
			return p, err
		}
		p.Password = string(pw)
		secureWipe(pw)
	}
	return p, nil
}

// connect opens a session from the resolved profile. The caller owns the
// returned manager and must Disconnect it.
func connect(ctx context.Context) (*session.Manager, error) {
	p, err := resolveProfile(ctx)
	if err != nil {
		return nil, err
	}
	var profiles session.ProfileStore
	if db != nil {
		profiles = db.Profiles()
	}
	mgr := session.NewManagerWithFactory(profiles, session.FactoryWithTimeout(cfg.Connect.Timeout))
	if err := mgr.Connect(ctx, p); err != nil {
		if db != nil {
			_ = db.Logs().Append(ctx, "warn", fmt.Sprintf("connect failed: %v", err), "")
		}
		return nil, err
	}
	if db != nil {
		_ = db.Logs().Append(ctx, "info", "connected", mgr.ConnectionName())
	}
	return mgr, nil
}

// requireStore fails commands that only make sense with persistence.
func requireStore() error {
	if db == nil {
		return fmt.Errorf("this command requires a configured store (set store.dsn or FERRYMAN_STORE_DSN)")
	}
	return nil
}
