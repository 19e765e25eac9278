package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ykushch/ferryman/internal/remote"
	"github.com/ykushch/ferryman/internal/session"
)

var (
	flagFavorite      bool
	flagFavoritesOnly bool
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved connection profiles",
}

var profileSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the connection flags as a named profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		p := session.Profile{
			Name:     args[0],
			Protocol: remote.Protocol(flagProto),
			Host:     flagHost,
			Port:     flagPort,
			Username: flagUser,
			UseTLS:   flagTLS,
			Favorite: flagFavorite,
		}
		if flagTLS && p.Protocol == remote.ProtocolFTP {
			p.Protocol = remote.ProtocolFTPS
		}
		if err := remote.ValidateEndpoint(p.Host, p.Port); err != nil {
			return err
		}

		switch {
		case flagPassword != "":
			p.Password = flagPassword
		case os.Getenv("FERRYMAN_PASSWORD") != "":
			p.Password = os.Getenv("FERRYMAN_PASSWORD")
		default:
			pw, err := askPassword()
			if err != nil {
				return err
			}
			p.Password = string(pw)
			secureWipe(pw)
		}

		if err := db.Profiles().Save(cmd.Context(), p); err != nil {
			return err
		}
		fmt.Printf("saved profile %q\n", p.Name)
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles, favorites first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		profiles, err := db.Profiles().List(cmd.Context(), flagFavoritesOnly)
		if err != nil {
			return err
		}
		if len(profiles) == 0 {
			fmt.Println("no saved profiles")
			return nil
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Name", "Protocol", "Host", "Port", "User", "Favorite", "Last used")
		for _, p := range profiles {
			fav := ""
			if p.Favorite {
				fav = "*"
			}
			lastUsed := ""
			if !p.LastUsed.IsZero() {
				lastUsed = p.LastUsed.Format("2006-01-02 15:04")
			}
			table.Append([]string{
				p.Name, string(p.Protocol), p.Host, strconv.Itoa(p.Port),
				p.Username, fav, lastUsed,
			})
		}
		return table.Render()
	},
}

var profileRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		found, err := db.Profiles().Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("profile %q not found", args[0])
		}
		fmt.Printf("deleted profile %q\n", args[0])
		return nil
	},
}

func init() {
	profileSaveCmd.Flags().BoolVar(&flagFavorite, "favorite", false, "mark the profile as a favorite")
	profileListCmd.Flags().BoolVar(&flagFavoritesOnly, "favorites", false, "show favorites only")
	profileCmd.AddCommand(profileSaveCmd, profileListCmd, profileRmCmd)
	rootCmd.AddCommand(profileCmd)
}
