// Command avatarctl is an operator tool for the streaming avatar service.
//
// Usage:
//
//	avatarctl [flags] <command> [args]
//
// Commands:
//
//	token     - issue a session token
//	sessions  - list active sessions
//	avatars   - list streaming avatars
//	quota     - show remaining quota
//	me        - show the account owner
//	upload    - upload an asset
//	talk      - start an avatar, make it speak, then stop it
//
// Configuration is read from config/config.<CONFIG_ENV>.yaml, a .env file
// and AVATAR_* environment variables.
package main

import (
	"fmt"
	"os"

	"github.com/dkeye/avatarstream/cmd/avatarctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
