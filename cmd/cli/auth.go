package cli

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"authvault/core"
	"authvault/pkg/config"
)

var (
	authEngine *core.Engine
	authOnce   sync.Once
)

func authInit(cmd *cobra.Command, _ []string) error {
	var initErr error
	authOnce.Do(func() {
		cfg, err := config.LoadFromEnv()
		if err != nil {
			initErr = err
			return
		}
		store := core.NewMemoryPacketStore(cfg.Store.CacheSizeEntries, nil)
		pool, err := core.NewKeyPairPool(cfg.Engine.MaxCryptoThreadCount, cfg.Engine.CryptoKeyBufferCount, nil)
		if err != nil {
			initErr = err
			return
		}
		authEngine = core.NewEngine(store, pool, core.NewSessionStore(), nil, cfg.Engine.FlowTimeout)
	})
	return initErr
}

func authCreate(cmd *cobra.Command, args []string) error {
	username, pin, password := args[0], args[1], args[2]
	if !core.CheckUsername(username) || !core.CheckPin(pin) || !core.CheckPassword(password) {
		return fmt.Errorf("invalid username, PIN, or password")
	}
	if code := authEngine.CreateUserSysPackets(username, pin); code != core.ResultSuccess {
		return fmt.Errorf("create system packets: %s", code)
	}
	if code := authEngine.CreateTmidPacket(username, pin, password, []byte{}); code != core.ResultSuccess {
		return fmt.Errorf("create TMID packet: %s", code)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "account %s created\n", username)
	return nil
}

func authLogin(cmd *cobra.Command, args []string) error {
	username, pin, password := args[0], args[1], args[2]
	if code := authEngine.GetUserInfo(username, pin); code != core.ResultUserExists {
		return fmt.Errorf("get user info: %s", code)
	}
	code, _ := authEngine.GetUserData(password)
	if code != core.ResultSuccess {
		return fmt.Errorf("get user data: %s", code)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "login ok")
	return nil
}

func authChangePassword(cmd *cobra.Command, args []string) error {
	if code := authEngine.ChangePassword([]byte{}, args[0]); code != core.ResultSuccess {
		return fmt.Errorf("change password: %s", code)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "password changed")
	return nil
}

func authChangeUsername(cmd *cobra.Command, args []string) error {
	if code := authEngine.ChangeUsername([]byte{}, args[0]); code != core.ResultSuccess {
		return fmt.Errorf("change username: %s", code)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "username changed")
	return nil
}

func authChangePin(cmd *cobra.Command, args []string) error {
	if code := authEngine.ChangePin([]byte{}, args[0]); code != core.ResultSuccess {
		return fmt.Errorf("change PIN: %s", code)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "PIN changed")
	return nil
}

func authPublicName(cmd *cobra.Command, args []string) error {
	if code := authEngine.CreatePublicName(args[0]); code != core.ResultSuccess {
		return fmt.Errorf("create public name: %s", code)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "public name %s created\n", args[0])
	return nil
}

func authRemove(cmd *cobra.Command, _ []string) error {
	rows := []core.KeyAtlasRow{
		{Kind: core.KindANMID}, {Kind: core.KindANSMID}, {Kind: core.KindANTMID},
		{Kind: core.KindMAID}, {Kind: core.KindANMAID},
	}
	if code := authEngine.RemoveMe(rows); code != core.ResultSuccess {
		return fmt.Errorf("remove me: %s", code)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "account removed")
	return nil
}

var authCmd = &cobra.Command{
	Use:               "auth",
	Short:             "Manage authentication accounts and sessions",
	PersistentPreRunE: authInit,
}

func init() {
	authCmd.AddCommand(&cobra.Command{
		Use:   "create <username> <pin> <password>",
		Short: "Create a new account's system packets and initial session",
		Args:  cobra.ExactArgs(3),
		RunE:  authCreate,
	})
	authCmd.AddCommand(&cobra.Command{
		Use:   "login <username> <pin> <password>",
		Short: "Resolve an account and unlock its current session",
		Args:  cobra.ExactArgs(3),
		RunE:  authLogin,
	})
	authCmd.AddCommand(&cobra.Command{
		Use:   "change-password <new-password>",
		Short: "Change the logged-in account's password",
		Args:  cobra.ExactArgs(1),
		RunE:  authChangePassword,
	})
	authCmd.AddCommand(&cobra.Command{
		Use:   "change-username <new-username>",
		Short: "Change the logged-in account's username",
		Args:  cobra.ExactArgs(1),
		RunE:  authChangeUsername,
	})
	authCmd.AddCommand(&cobra.Command{
		Use:   "change-pin <new-pin>",
		Short: "Change the logged-in account's PIN",
		Args:  cobra.ExactArgs(1),
		RunE:  authChangePin,
	})
	authCmd.AddCommand(&cobra.Command{
		Use:   "public-name <name>",
		Short: "Register a public name (MPID) for the logged-in account",
		Args:  cobra.ExactArgs(1),
		RunE:  authPublicName,
	})
	authCmd.AddCommand(&cobra.Command{
		Use:   "remove",
		Short: "Delete the logged-in account's packets and reset the session",
		RunE:  authRemove,
	})
}

// AuthCmd is the auth command group, mounted by cmd/authvault.
var AuthCmd = authCmd

// Exit prints a non-nil err to stderr and exits with status 1; a nil err
// is a no-op. cmd/authvault's main calls os.Exit directly rather than this
// helper.
func Exit(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
